package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/chronodose-cli/internal/config"
	"github.com/sells-group/chronodose-cli/internal/feed"
	"github.com/sells-group/chronodose-cli/internal/fetcher"
	"github.com/sells-group/chronodose-cli/internal/geo"
)

var (
	scanNear        string
	scanCity        string
	scanRadius      float64
	scanVaccine     string
	scanDepartments []int
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Rank nearby centers by confirmed chronodoses",
	Example: `  chronodose scan
  chronodose scan --city Versailles --radius 10
  chronodose scan --near 48.8566,2.3522 --departments 75,92 -f json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f := newFeedFetcher(cfg)

		if err := applyScanFlags(cmd, cfg, f); err != nil {
			return err
		}
		if err := cfg.Validate("scan"); err != nil {
			return err
		}

		scanner, _ := newScanner(cfg, newBookingClient(cfg))
		rep, err := newFinder(cfg, f, scanner).Run(ctx, finderOptions(cfg))
		if err != nil {
			return err
		}
		return writeReport(cmd, rep)
	},
}

// applyScanFlags folds explicitly set flags into c. --city resolves through
// the commune index and wins over --near.
func applyScanFlags(cmd *cobra.Command, c *config.Config, f fetcher.Fetcher) error {
	flags := cmd.Flags()
	if flags.Changed("near") {
		p, err := geo.ParsePoint(scanNear)
		if err != nil {
			return eris.Wrap(err, "--near")
		}
		c.Location.Latitude, c.Location.Longitude = p.Lat(), p.Lon()
	}
	if flags.Changed("city") {
		communes, err := feed.FetchCommunes(cmd.Context(), f, c.Feed.CommuneURL)
		if err != nil {
			return err
		}
		commune, err := communes.BestCommune(scanCity)
		if err != nil {
			return err
		}
		zap.L().Info("resolved city", zap.String("query", scanCity), zap.String("commune", commune.Name),
			zap.Stringer("location", commune.Location))
		c.Location.Latitude, c.Location.Longitude = commune.Location.Lat(), commune.Location.Lon()
	}
	if flags.Changed("radius") {
		c.Location.RadiusKM = scanRadius
	}
	if flags.Changed("vaccine") {
		c.Scan.Vaccine = scanVaccine
	}
	if flags.Changed("departments") {
		c.Feed.Departments = scanDepartments
	}
	return nil
}

func init() {
	scanCmd.Flags().StringVar(&scanNear, "near", "", "reference location as lat,lon")
	scanCmd.Flags().StringVar(&scanCity, "city", "", "reference commune name or zip code")
	scanCmd.Flags().Float64Var(&scanRadius, "radius", 0, "search radius in km (default from config)")
	scanCmd.Flags().StringVar(&scanVaccine, "vaccine", "", "vaccine keyword (default from config)")
	scanCmd.Flags().IntSliceVar(&scanDepartments, "departments", nil, "department codes to read (default from config)")
	addOutputFlags(scanCmd)
	rootCmd.AddCommand(scanCmd)
}
