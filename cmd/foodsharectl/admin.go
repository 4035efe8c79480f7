package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmeshcher/foodshare/internal/model"
	"github.com/mmeshcher/foodshare/internal/service"
)

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Expire available listings past their expiry date",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			expired, err := svc.ExpireListings(ctx)
			if err != nil {
				return err
			}
			for _, l := range expired {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", l.ID, l.Title, l.ExpiryDate.Format("2006-01-02 15:04"))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Expired %d listing(s)\n", len(expired))
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print platform statistics as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			stats, err := svc.PlatformStatsUnchecked(ctx)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		})
	},
}

var (
	promoteEmail string
	promoteRole  string
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Change the role of an existing user",
	Long:  "promote is the only way to grant the admin role. Existing sessions keep their old role until they expire.",
	RunE: func(cmd *cobra.Command, args []string) error {
		role, err := model.ParseRole(promoteRole)
		if err != nil {
			return err
		}
		return withService(cmd.Context(), func(ctx context.Context, svc *service.Service) error {
			if err := svc.SetRole(ctx, promoteEmail, role); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", promoteEmail, role)
			return nil
		})
	},
}

func init() {
	promoteCmd.Flags().StringVar(&promoteEmail, "email", "", "user email")
	promoteCmd.Flags().StringVar(&promoteRole, "role", string(model.RoleAdmin), "new role")
	_ = promoteCmd.MarkFlagRequired("email")

	rootCmd.AddCommand(expireCmd, statsCmd, promoteCmd)
}
