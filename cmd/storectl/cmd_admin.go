package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storefront/internal/domain"
	userrepo "storefront/internal/repository/user"
	authsvc "storefront/internal/service/auth"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		first, _ := cmd.Flags().GetString("first-name")
		last, _ := cmd.Flags().GetString("last-name")

		ctx := cmd.Context()
		pool, err := connect(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		svc := authsvc.New(userrepo.NewPostgres(pool, logger), cfg.JWTSecret, cfg.JWTTTL, logger)
		u, err := svc.CreateUser(ctx, authsvc.CreateUserInput{
			Email:     email,
			Password:  password,
			Role:      domain.RoleAdmin,
			FirstName: first,
			LastName:  last,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", u.Email, u.ID)
		return nil
	},
}

func init() {
	createAdminCmd.Flags().String("email", "", "admin email")
	createAdminCmd.Flags().String("password", "", "admin password")
	createAdminCmd.Flags().String("first-name", "Admin", "first name")
	createAdminCmd.Flags().String("last-name", "User", "last name")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}
