package main

import (
	"fmt"
	"strings"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/services/query"
	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var projectID string
	var kindFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := ctx.user()
			if err != nil {
				return err
			}
			if projectID == "" {
				return fmt.Errorf("--project is required")
			}
			kinds, err := kindsFor(kindFlag)
			if err != nil {
				return err
			}
			b, err := ctx.ensureBackend(cmd.Context())
			if err != nil {
				return err
			}

			total := 0
			for _, kind := range kinds {
				assets, err := b.queries.ListAssets(cmd.Context(), kind, userID, projectID, limit, 0)
				if err != nil {
					return fmt.Errorf("list %s assets: %w", kind, err)
				}
				for _, a := range assets {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d\t%s\n", kind, a.ID, a.OriginalName, a.Size, a.URL)
				}
				total += len(assets)
			}
			if total == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No assets")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project id")
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "all", "Asset kind: demo, hook, audio or all")
	cmd.Flags().IntVar(&limit, "limit", query.DefaultPageSize, "Maximum assets per kind")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kind> <asset-id>",
		Short: "Delete an asset and its stored object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := ctx.user()
			if err != nil {
				return err
			}
			kind, ok := models.ParseAssetKind(args[0])
			if !ok {
				return fmt.Errorf("unknown kind %q", args[0])
			}
			b, err := ctx.ensureBackend(cmd.Context())
			if err != nil {
				return err
			}
			asset, err := b.queries.GetAsset(cmd.Context(), kind, args[1], userID)
			if err != nil {
				return fmt.Errorf("lookup asset: %w", err)
			}
			if err := b.orchestrators.For(userID).DeleteAsset(cmd.Context(), asset); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s asset %s\n", kind, asset.ID)
			return nil
		},
	}
}

func kindsFor(flag string) ([]models.AssetKind, error) {
	if strings.EqualFold(strings.TrimSpace(flag), "all") {
		return models.AssetKinds, nil
	}
	kind, ok := models.ParseAssetKind(flag)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", flag)
	}
	return []models.AssetKind{kind}, nil
}
