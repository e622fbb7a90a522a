package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockpulse/stockpulse-backend/internal/pipeline/repository"
	"github.com/stockpulse/stockpulse-backend/pkg/config"
	"github.com/stockpulse/stockpulse-backend/pkg/database"
	"github.com/stockpulse/stockpulse-backend/pkg/logger"
)

var locations = []string{
	"Chennai", "Mumbai", "Delhi", "Bangalore", "Kolkata",
	"Hyderabad", "Pune", "Ahmedabad", "Jaipur", "Lucknow",
}

var items = []string{
	"Paracetamol", "ORS", "Insulin", "Aspirin", "Antibiotics",
	"Bandages", "Syringes", "Gloves", "Masks", "Thermometers",
	"BP Monitor", "Glucose Test Strips", "IV Fluids", "Oxygen Cylinders",
}

var vendorNames = []string{
	"MedSupply", "HealthFirst", "CarePlus", "BioLine", "Apex Medical",
	"Sunrise Pharma", "GlobalMed", "PrimeCare", "Lotus Healthcare", "Veda Labs",
}

// stockgen seeds a development database with a realistic movement ledger
// and supplier registry, or writes the ledger as a CSV suitable for the
// ingestion upload endpoint. The RNG is seeded, so the same flags always
// produce the same dataset.
func main() {
	days := flag.Int("days", 60, "Days of ledger history to generate")
	seed := flag.Int64("seed", 42, "RNG seed")
	csvPath := flag.String("csv", "", "Write the ledger to this CSV file instead of the database (skips the supplier registry)")
	flag.Parse()

	if *days < 1 {
		fmt.Fprintln(os.Stderr, "-days must be at least 1")
		os.Exit(2)
	}

	rng := rand.New(rand.NewSource(*seed))
	movements := generateLedger(rng, *days)

	if *csvPath != "" {
		if err := writeLedgerCSV(*csvPath, movements); err != nil {
			fmt.Fprintf(os.Stderr, "write csv: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %d movement rows to %s\n", len(movements), *csvPath)
		return
	}

	cfg, err := config.Load("pipeline-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("stockgen", cfg.Server.Environment)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := db.ApplyMigrations(ctx, repository.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	movementRepo := repository.NewMovementRepository(db)
	inserted, skipped := 0, 0
	for i := range movements {
		ok, err := movementRepo.Insert(ctx, &movements[i])
		if err != nil {
			log.Fatal().Err(err).Str("location", movements[i].Location).Str("item", movements[i].ItemName).Msg("failed to insert movement")
		}
		if ok {
			inserted++
		} else {
			skipped++
		}
	}

	supplierRepo := repository.NewSupplierRepository(db)
	suppliers := generateSuppliers(rng)
	for i := range suppliers {
		if err := supplierRepo.Upsert(ctx, &suppliers[i]); err != nil {
			log.Fatal().Err(err).Str("supplier_id", suppliers[i].SupplierID).Msg("failed to upsert supplier")
		}
	}

	log.Info().
		Int("movements_inserted", inserted).
		Int("movements_skipped", skipped).
		Int("suppliers", len(suppliers)).
		Int("days", *days).
		Msg("demo data generated")
}

// generateLedger walks each (location, item) pair forward one day at a
// time. Usage is a fraction of current stock, damped on weekends, and
// restocks arrive at random so levels drift into alert territory.
func generateLedger(rng *rand.Rand, days int) []repository.MovementRecord {
	today := time.Now().UTC()
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)

	type pair struct{ location, item string }
	stock := make(map[pair]float64, len(locations)*len(items))
	for _, loc := range locations {
		for _, item := range items {
			stock[pair{loc, item}] = float64(50 + rng.Intn(201))
		}
	}

	leadByItem := make(map[string]int, len(items))
	for _, item := range items {
		leadByItem[item] = 2 + rng.Intn(6)
	}

	records := make([]repository.MovementRecord, 0, days*len(locations)*len(items))
	for day := 0; day < days; day++ {
		date := start.AddDate(0, 0, day)
		weekdayFactor := 1.0
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekdayFactor = 0.6
		}

		for _, loc := range locations {
			for _, item := range items {
				key := pair{loc, item}
				opening := stock[key]

				issued := math.Floor(opening * (0.05 + rng.Float64()*0.25) * weekdayFactor)
				if issued > opening {
					issued = opening
				}

				received := 0.0
				if rng.Float64() < 0.15 {
					received = float64(50 + rng.Intn(101))
				}

				closing := opening - issued + received
				if closing < 0 {
					closing = 0
				}

				records = append(records, repository.MovementRecord{
					Location:     loc,
					ItemName:     item,
					OpeningStock: opening,
					ReceivedQty:  received,
					IssuedQty:    issued,
					ClosingStock: closing,
					LeadTimeDays: leadByItem[item],
					RecordDate:   date,
					Source:       "generator",
				})
				stock[key] = closing
			}
		}
	}
	return records
}

// generateSuppliers builds 2-4 registry entries per item with spread
// lead times, reliability and prices so the matcher has real choices.
func generateSuppliers(rng *rand.Rand) []repository.Supplier {
	suppliers := []repository.Supplier{}
	now := time.Now().UTC()
	seq := 0

	for _, item := range items {
		basePrice := 20 + rng.Float64()*180
		count := 2 + rng.Intn(3)
		for i := 0; i < count; i++ {
			seq++
			vendor := vendorNames[rng.Intn(len(vendorNames))]
			reliability := math.Round((70+rng.Float64()*29)*10) / 10
			totalOrders := 20 + rng.Intn(180)
			lastDelivery := now.AddDate(0, 0, -rng.Intn(30))
			email := fmt.Sprintf("orders@%s.example.com", strings.ToLower(strings.ReplaceAll(vendor, " ", "")))
			phone := fmt.Sprintf("+91 %d", 7000000000+rng.Int63n(3000000000))

			suppliers = append(suppliers, repository.Supplier{
				SupplierID:       fmt.Sprintf("SUP-%03d", seq),
				Name:             fmt.Sprintf("%s Distributors", vendor),
				ItemName:         item,
				AvgLeadTimeDays:  2 + rng.Intn(9),
				ReliabilityScore: reliability,
				UnitPrice:        decimal.NewFromFloat(basePrice * (0.9 + rng.Float64()*0.3)).Round(2),
				ContactEmail:     &email,
				Phone:            &phone,
				LastDeliveryDate: &lastDelivery,
				TotalOrders:      totalOrders,
				OnTimeDeliveries: int(float64(totalOrders) * reliability / 100),
				IsActive:         rng.Float64() < 0.9,
			})
		}
	}
	return suppliers
}

func writeLedgerCSV(path string, records []repository.MovementRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"LOCATION", "ITEM", "CURRENT_STOCK", "RECEIVED_QTY", "ISSUED_QTY", "LAST_UPDATED_DATE"}); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.Location,
			rec.ItemName,
			strconv.FormatFloat(rec.ClosingStock, 'f', -1, 64),
			strconv.FormatFloat(rec.ReceivedQty, 'f', -1, 64),
			strconv.FormatFloat(rec.IssuedQty, 'f', -1, 64),
			rec.RecordDate.Format("2006-01-02"),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
