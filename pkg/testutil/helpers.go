package testutil

import "time"

// Pointer helpers for optional columns in fixtures and assertions.

func PtrString(s string) *string { return &s }

func PtrBool(b bool) *bool { return &b }

func PtrTime(t time.Time) *time.Time { return &t }

func PtrFloat(f float64) *float64 { return &f }
