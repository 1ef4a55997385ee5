// CLI tool to create a user with bcrypt-hashed password and an empty biometric
// profile. Flags that are omitted are prompted for on stdin.
// Usage: go run ./cmd/create-user [--username u] [--email e]
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

type newUser struct {
	Username string
	Email    string
	Password string
}

func main() {
	var u newUser
	cmd := &cobra.Command{
		Use:          "create-user",
		Short:        "Create a user and print its auth token",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			if err := prompt(bufio.NewReader(cmd.InOrStdin()), cmd.OutOrStdout(), &u); err != nil {
				return err
			}
			return createUser(cmd.Context(), u)
		},
	}
	cmd.Flags().StringVar(&u.Username, "username", "", "login name")
	cmd.Flags().StringVar(&u.Email, "email", "", "email address")
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// prompt fills in missing fields from r. The password is always prompted so it
// never lands in shell history.
func prompt(r *bufio.Reader, w io.Writer, u *newUser) error {
	ask := func(label string, dst *string) {
		if *dst != "" {
			return
		}
		fmt.Fprintf(w, "%s: ", label)
		line, _ := r.ReadString('\n')
		*dst = strings.TrimSpace(line)
	}
	ask("Username", &u.Username)
	ask("Email", &u.Email)
	ask("Password", &u.Password)
	if u.Username == "" || u.Password == "" {
		return fmt.Errorf("username and password are required")
	}
	return nil
}

func createUser(ctx context.Context, u newUser) error {
	conn, err := pgx.Connect(ctx, os.Getenv("DB_URL"))
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	authToken := uuid.New().String()

	var userID int
	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO users (username, email, password, auth_token)
			 VALUES ($1, $2, $3, $4) RETURNING id`,
			u.Username, u.Email, string(hash), authToken,
		).Scan(&userID); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		// The profile row starts empty; balances report "profile not
		// configured" until the user fills it in.
		if _, err := tx.Exec(ctx, `INSERT INTO user_profiles (user_id) VALUES ($1)`, userID); err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}

	fmt.Printf("\nUser created successfully!\n")
	fmt.Printf("  ID:         %d\n", userID)
	fmt.Printf("  Username:   %s\n", u.Username)
	fmt.Printf("  Auth Token: %s\n", authToken)
	return nil
}
