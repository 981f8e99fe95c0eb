package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/File-Sharing-BondBridg/Asset-Service/internal/models"
	"github.com/File-Sharing-BondBridg/Asset-Service/internal/pipeline"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var projectID string
	var kindFlag string
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload local files as assets of a project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := ctx.user()
			if err != nil {
				return err
			}
			kind, ok := models.ParseAssetKind(kindFlag)
			if !ok {
				return fmt.Errorf("unknown kind %q (want demo, hook or audio)", kindFlag)
			}
			if projectID == "" {
				return errors.New("--project is required")
			}
			files, err := diskFiles(args)
			if err != nil {
				return err
			}

			b, err := ctx.ensureBackend(cmd.Context())
			if err != nil {
				return err
			}

			req := pipeline.BatchRequest{Files: files, OwnerID: userID, ProjectID: projectID, Kind: kind}
			var bar *progressbar.ProgressBar
			if !noProgress {
				bar = newProgressBar(cmd.ErrOrStderr(), fmt.Sprintf("uploading %s", kind))
				req.Progress = barSink(bar)
			}

			assets, err := b.orchestrators.For(userID).UploadBatch(cmd.Context(), req)
			if bar != nil {
				_ = bar.Exit()
				fmt.Fprintln(cmd.ErrOrStderr())
			}
			printAssets(cmd.OutOrStdout(), assets)
			if err != nil {
				return fmt.Errorf("upload stopped after %d asset(s): %w", len(assets), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d %s asset(s)\n", len(assets), kind)
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project id")
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", string(models.AssetKindDemo), "Asset kind: demo, hook or audio")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

func diskFiles(paths []string) ([]pipeline.LocalFile, error) {
	files := make([]pipeline.LocalFile, 0, len(paths))
	for _, p := range paths {
		f, err := pipeline.OpenDiskFile(p)
		if err != nil {
			return nil, fmt.Errorf("inspect %s: %w", p, err)
		}
		files = append(files, f)
	}
	return files, nil
}

func newProgressBar(w io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
	)
}

// barSink mirrors the batch percentage onto the bar.
func barSink(bar *progressbar.ProgressBar) pipeline.ProgressSink {
	return func(percent int) {
		_ = bar.Set(percent)
	}
}

func printAssets(w io.Writer, assets []models.Asset) {
	for _, a := range assets {
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, a.OriginalName, a.URL)
	}
}
