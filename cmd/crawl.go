package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/newsrank-crawler/internal/crawler"
)

// newCrawlCmd runs one crawl job in the foreground and prints its summary.
func newCrawlCmd() *cobra.Command {
	var siteID string
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls one site and recomputes its ranking",
		Long: `Runs a single crawl job for --site, appends qualifying articles to the raw
log, recomputes the top-10 snapshot and prints the job summary as JSON.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := appInstance.Crawler().StartCrawl(cmd.Context(), siteID)
			if err != nil {
				return fmt.Errorf("crawl %s: %w", siteID, withSupportedSites(err, appInstance.Sites()))
			}
			appInstance.Logger().Info("crawl command finished",
				zap.String("job_id", summary.JobID),
				zap.String("status", string(summary.Status)),
			)
			return writeIndented(cmd, summary)
		},
	}
	cmd.Flags().StringVar(&siteID, "site", "", "site to crawl (https://vnexpress.net or https://tuoitre.vn)")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}

// newTopCmd prints the stored ranking without crawling.
func newTopCmd() *cobra.Command {
	var siteID string
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Prints the current top-10 snapshot for a site",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			data, err := appInstance.Crawler().LoadTop(cmd.Context(), siteID)
			if err != nil {
				return fmt.Errorf("load top %s: %w", siteID, withSupportedSites(err, appInstance.Sites()))
			}
			return writeIndented(cmd, data)
		},
	}
	cmd.Flags().StringVar(&siteID, "site", "", "site to show (https://vnexpress.net or https://tuoitre.vn)")
	_ = cmd.MarkFlagRequired("site")
	return cmd
}

// withSupportedSites lists the valid site IDs on an unknown-site error.
func withSupportedSites(err error, sites []crawler.Site) error {
	if !errors.Is(err, crawler.ErrInvalidSite) || len(sites) == 0 {
		return err
	}
	ids := make([]string, len(sites))
	for i, s := range sites {
		ids[i] = s.ID
	}
	return fmt.Errorf("%w (supported: %s)", err, strings.Join(ids, ", "))
}

func writeIndented(cmd *cobra.Command, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(body)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
