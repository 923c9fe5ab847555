package main

import (
	"flag"
	"fmt"
	"log"

	"egressos/pkg/staff"
	"egressos/pkg/store"
)

func main() {
	username := flag.String("username", "", "username to reset")
	password := flag.String("password", "", "new plaintext password (min 6 chars)")
	flag.Parse()
	if *username == "" || *password == "" {
		log.Fatal("--username and --password are required")
	}

	store.LoadDotEnv(".env")
	db, err := store.Open(store.OptionsFromEnv())
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	if err := staff.ResetPassword(db, *username, *password); err != nil {
		log.Fatalf("reset failed: %v", err)
	}
	fmt.Printf("Password reset for user %s; refresh tokens revoked\n", *username)
}
