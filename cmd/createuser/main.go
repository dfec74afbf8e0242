package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"baz-car-admin/internal/config"
	"baz-car-admin/internal/database"
	"baz-car-admin/internal/logger"
	"baz-car-admin/internal/model"
	"baz-car-admin/internal/repository"
	"baz-car-admin/internal/service"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("createuser", flag.ContinueOnError)
	role := fs.String("role", model.DefaultRole, "role assigned to the new user")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: createuser [-role user] <username> [password]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 || fs.NArg() > 2 {
		fs.Usage()
		return errors.New("username is required")
	}

	username := strings.TrimSpace(fs.Arg(0))
	password := fs.Arg(1)
	if fs.NArg() == 1 {
		prompted, err := promptPassword(out)
		if err != nil {
			return err
		}
		password = prompted
	}

	cfg := config.Read()
	slog.SetDefault(logger.New(os.Stderr, "warn", cfg.LogFormat))

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := database.New(ctx, dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}

	auth := service.NewAuthService(
		repository.NewUserRepository(db.SQL),
		repository.NewTokenRepository(db.SQL),
		cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL,
	)

	user, err := auth.CreateUser(ctx, username, password, *role)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "user %q created (id %d, role %s)\n", user.Username, user.ID, user.Role)
	return nil
}

func promptPassword(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password argument is required when stdin is not a terminal")
	}

	fmt.Fprint(out, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(out, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
