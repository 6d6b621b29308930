package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/thrylos-labs/postoken/config"
	"github.com/thrylos-labs/postoken/store"
	"github.com/thrylos-labs/postoken/types"
)

// Inspects a postoken data directory: prints the registry row for a
// symbol and, when an owner is given, that owner's balance and deposit
// records.
func main() {
	symbol := flag.String("symbol", "", "Symbol code to inspect, e.g. TOK")
	owner := flag.String("owner", "", "Optional account whose balance and deposits to print")
	flag.Parse()

	if *symbol == "" {
		log.Fatal("A -symbol is required")
	}

	cfg := config.LoadConfig()
	absPath, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		log.Fatalf("Error resolving the absolute path of the data directory: %v", err)
	}
	log.Printf("Using data directory: %s", absPath)

	db, err := store.NewDatabase(absPath)
	if err != nil {
		log.Fatalf("Failed to open the database at %s: %v", absPath, err)
	}
	s, err := store.NewStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize the store: %v", err)
	}
	defer s.Close()

	st, err := s.Stats(*symbol)
	if err != nil {
		log.Fatalf("Failed to load stats for %s: %v", *symbol, err)
	}
	fmt.Printf("symbol:      %s\n", st.Supply.Symbol)
	fmt.Printf("issuer:      %s\n", st.Issuer)
	fmt.Printf("supply:      %s\n", st.Supply)
	fmt.Printf("max supply:  %s\n", st.MaxSupply)
	if st.StakingConfigured() {
		fmt.Printf("stake start: %d\n", st.StakeStartTime)
		fmt.Printf("coin age:    %d..%d days\n", st.MinCoinAge, st.MaxCoinAge)
		for _, tier := range st.AnnualInterests {
			fmt.Printf("  tier: %d years at %s\n", tier.Years, tier.InterestRate)
		}
	}

	if *owner == "" {
		return
	}

	bal, err := s.Balance(types.Principal(*owner), *symbol)
	if err != nil {
		log.Fatalf("Failed to load balance of %s: %v", *owner, err)
	}
	fmt.Printf("balance of %s: %s\n", *owner, bal.Balance)

	recs, err := s.Deposits(types.Principal(*owner), *symbol)
	if err != nil {
		log.Fatalf("Failed to load deposits of %s: %v", *owner, err)
	}
	for _, rec := range recs {
		fmt.Printf("  deposit %d: %s at %d\n", rec.ID, rec.Quantity, rec.Time)
	}
}
