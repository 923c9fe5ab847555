package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"egressos/models"
	"egressos/pkg/staff"
	"egressos/pkg/store"
)

func main() {
	role := flag.String("role", models.RoleOperator, "role name (operator or administrator)")
	flag.Parse()
	if flag.NArg() < 2 {
		fmt.Println("usage: go run ./cmd/create_user [-role administrator] <username> <password>")
		os.Exit(2)
	}
	username := flag.Arg(0)
	password := flag.Arg(1)

	store.LoadDotEnv(".env")
	db, err := store.Open(store.OptionsFromEnv())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	// roles may be missing on a fresh database
	for _, r := range models.DefaultRoles() {
		if err := db.Where("name = ?", r.Name).FirstOrCreate(&r).Error; err != nil {
			log.Fatalf("failed to ensure role %s: %v", r.Name, err)
		}
	}

	user, err := staff.Register(db, username, password, *role)
	if errors.Is(err, staff.ErrUserExists) {
		fmt.Printf("user %s already exists\n", username)
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created user %s id=%d role=%s\n", user.Username, user.ID, user.Role.Name)
}
