package commands

import (
	"fmt"

	"github.com/de-tools/service-map/pkg/store/entity"
	"github.com/spf13/cobra"
)

func NewInitStoreCmd(rt Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "init-store",
		Short: "Create the entity tables when missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := rt.Store(ctx)
			if err != nil {
				return err
			}
			initializer, ok := store.(entity.Initializer)
			if !ok {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Backend %s needs no provisioning\n", rt.Settings().Store.Backend)
				return err
			}
			if err := initializer.EnsureTables(ctx); err != nil {
				return fmt.Errorf("failed to provision tables: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Tables ready for %s\n", rt.Settings().StoreKey())
			return err
		},
	}
}
