package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DatabaseURL is the decomposed form of a postgres:// connection URL.
type DatabaseURL struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Options  map[string]string
}

// ParseDatabaseURL splits a 12-factor style connection URL into its
// parts. Both postgres:// and postgresql:// schemes are accepted; the
// port defaults to 5432 and sslmode to disable when absent.
func ParseDatabaseURL(raw string) (*DatabaseURL, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty database URL")
	}

	u, err := url.Parse(strings.Replace(raw, "postgresql://", "postgres://", 1))
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if u.Scheme != "postgres" {
		return nil, fmt.Errorf("unsupported database URL scheme %q", u.Scheme)
	}

	d := &DatabaseURL{
		Host:     u.Hostname(),
		Port:     5432,
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  "disable",
		Options:  map[string]string{},
	}
	if p := u.Port(); p != "" {
		if d.Port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("invalid port %q in database URL", p)
		}
	}
	if u.User != nil {
		d.User = u.User.Username()
		d.Password, _ = u.User.Password()
	}
	for key, vals := range u.Query() {
		if len(vals) == 0 {
			continue
		}
		if key == "sslmode" {
			d.SSLMode = vals[0]
			continue
		}
		d.Options[key] = vals[0]
	}
	return d, nil
}

// DSN renders the URL as a libpq key/value connection string.
func (d *DatabaseURL) DSN() string {
	var b strings.Builder
	fmt.Fprintf(&b, "host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
	for key, val := range d.Options {
		fmt.Fprintf(&b, " %s=%s", key, val)
	}
	return b.String()
}

// String re-assembles the canonical postgres:// form. The password is
// URL-escaped so credentials with reserved characters survive the trip.
func (d *DatabaseURL) String() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, url.QueryEscape(d.Password), d.Host, d.Port, d.Database, d.SSLMode)
}
