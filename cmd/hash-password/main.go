package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/stemsi/survey-backend/internal/config"
	"github.com/stemsi/survey-backend/internal/service"
	"golang.org/x/term"
)

func main() {
	cfg := config.Load()

	fmt.Println("=== Hash Admin Password ===")

	fmt.Print("Enter Password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	if len(first) < 8 {
		fmt.Println("Error: Password must be at least 8 characters")
		os.Exit(1)
	}

	fmt.Print("Confirm Password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("Error reading password")
		os.Exit(1)
	}
	if string(first) != string(second) {
		fmt.Println("Error: Passwords do not match")
		os.Exit(1)
	}

	authService, err := service.NewAuthService(cfg, nil)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	hash, err := authService.HashPassword(string(first))
	if err != nil {
		fmt.Printf("Error hashing password: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nAdd this line to your .env:")
	fmt.Printf("ADMIN_PASSWORD_HASH=%s\n", hash)
}
