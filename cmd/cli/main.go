package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/kouprey/storefront/internal/models"
	"github.com/kouprey/storefront/internal/payment"
	"github.com/kouprey/storefront/internal/store"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "kouprey",
		Short:   "Kouprey storefront administration",
		Version: Version,
	}
	rootCmd.PersistentFlags().String("db", envOr("DB_PATH", "./kouprey.db"), "SQLite database path")

	rootCmd.AddCommand(addUserCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(signCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// openStore opens the database and brings the schema up to date, so the
// CLI works before the server has ever run.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	path, _ := cmd.Flags().GetString("db")
	db, err := store.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(store.Migrations()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func addUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-user",
		Short: "Create a store or master account",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			role, _ := cmd.Flags().GetString("role")

			email = strings.ToLower(strings.TrimSpace(email))
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			r := models.Role(role)
			if r != models.RoleStore && r != models.RoleMaster {
				return fmt.Errorf("unknown role %q", role)
			}

			db, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			ctx := context.Background()
			if err := db.CreateUser(ctx, email, string(hashed), r); err != nil {
				return fmt.Errorf("create user: %w", err)
			}
			if err := db.AddAuditLog(ctx, "cli", "create_user", email, "Created "+role+" account from CLI"); err != nil {
				fmt.Fprintln(os.Stderr, "warning: audit log not written:", err)
			}

			fmt.Printf("User '%s' (%s) created successfully.\n", email, role)
			return nil
		},
	}

	cmd.Flags().StringP("email", "e", "", "Email for the new user")
	cmd.Flags().StringP("password", "p", "", "Password for the new user")
	cmd.Flags().StringP("role", "r", string(models.RoleStore), "Role (store, master)")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Println("Database is up to date.")
			return nil
		},
	}
}

func signCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign [field...]",
		Short: "Compute a PayU request hash",
		Long: "With positional arguments, hashes them joined by '|'. Otherwise builds\n" +
			"key|txnid|amount|productinfo|firstname|email|udf1..udf10|salt from flags.",
		RunE: func(cmd *cobra.Command, args []string) error {
			signer := payment.SHA512Signer{}
			if len(args) > 0 {
				fmt.Println(signer.Sign(args))
				return nil
			}

			var f payment.RequestFields
			f.Key, _ = cmd.Flags().GetString("key")
			f.TxnID, _ = cmd.Flags().GetString("txnid")
			f.Amount, _ = cmd.Flags().GetString("amount")
			f.ProductInfo, _ = cmd.Flags().GetString("productinfo")
			f.FirstName, _ = cmd.Flags().GetString("firstname")
			f.Email, _ = cmd.Flags().GetString("email")
			f.UDF, _ = cmd.Flags().GetStringArray("udf")
			f.Salt, _ = cmd.Flags().GetString("salt")
			if f.Key == "" || f.Salt == "" {
				return fmt.Errorf("--key and --salt are required")
			}

			fmt.Println(signer.Sign(f.Ordered()))
			return nil
		},
	}

	cmd.Flags().String("key", "", "Merchant key")
	cmd.Flags().String("salt", "", "Merchant salt")
	cmd.Flags().String("txnid", "", "Transaction id")
	cmd.Flags().String("amount", "", "Amount, two decimals")
	cmd.Flags().String("productinfo", "", "Product info")
	cmd.Flags().String("firstname", "", "Buyer first name")
	cmd.Flags().String("email", "", "Buyer email")
	cmd.Flags().StringArray("udf", nil, "User-defined field, repeat for udf1..udf10 in order")
	return cmd
}
