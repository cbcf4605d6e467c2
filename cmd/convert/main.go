// Command convert converts a network file to a feed archive or back.
//
//	convert -from network -in city.net -out city.zip
//	convert -from feed -in city.zip -out city.net -epsg EPSG:25832
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/transitconv/internal/config"
	"github.com/JonMunkholm/transitconv/internal/convert"
	"github.com/JonMunkholm/transitconv/internal/feed"
	"github.com/JonMunkholm/transitconv/internal/logging"
	"github.com/JonMunkholm/transitconv/internal/network"
	"github.com/JonMunkholm/transitconv/internal/pgsink"
	"github.com/JonMunkholm/transitconv/internal/projection"
	"github.com/JonMunkholm/transitconv/internal/table"
)

type options struct {
	from   string
	in     string
	out    string
	epsg   string
	store  bool
	schema string
}

func main() {
	var opts options
	flag.StringVar(&opts.from, "from", "", "source format: network or feed")
	flag.StringVar(&opts.in, "in", "", "input file")
	flag.StringVar(&opts.out, "out", "", "output file")
	flag.StringVar(&opts.epsg, "epsg", "", "coordinate system of the network side (default NETWORK_SOURCE_EPSG)")
	flag.BoolVar(&opts.store, "store", false, "also load the converted tables into DATABASE_URL")
	flag.StringVar(&opts.schema, "schema", "", "database schema (default DB_SCHEMA)")
	flag.Parse()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	logger, flush := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.SeqURL)
	logEnvFile(logger, envErr)

	err = run(context.Background(), cfg, logger, opts, os.Stdout)
	flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, "convert:", err)
		os.Exit(1)
	}
}

// logEnvFile reports the outcome of loading .env. Unlike the server, the
// command keeps variables already set in the environment.
func logEnvFile(logger *slog.Logger, err error) {
	switch {
	case err == nil:
		logger.Info("loaded .env file")
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("no .env file found, using environment variables")
	default:
		logger.Warn("ignoring unreadable .env file", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts options, stdout io.Writer) error {
	if opts.in == "" || opts.out == "" {
		return fmt.Errorf("%w: -in and -out are required", table.ErrValidation)
	}

	reg, err := cfg.Registry(logger)
	if err != nil {
		return err
	}
	settings, err := cfg.ConvertSettings()
	if err != nil {
		return err
	}
	conv, err := convert.New(reg, settings, convert.WithLogger(logger))
	if err != nil {
		return err
	}

	netOpts := cfg.NetworkOptions(logger)
	if opts.epsg != "" {
		code, err := projection.ParseCode(opts.epsg)
		if err != nil {
			return err
		}
		netOpts = append(netOpts, network.WithSourceEPSG(code))
	}

	var (
		report  convert.Report
		notices []network.Notice
		tables  []*table.Table
	)
	switch opts.from {
	case "network":
		src, err := network.ReadFile(opts.in, netOpts...)
		if err != nil {
			return err
		}
		dst := feed.NewArchive(opts.out, feed.WithLogger(logger))
		if report, err = conv.NetworkToFeed(src, dst); err != nil {
			return err
		}
		if err := dst.Write(); err != nil {
			return err
		}
		notices, tables = src.Notices(), dst.Tables()

	case "feed":
		src, err := feed.OpenArchive(opts.in, feed.WithLogger(logger))
		if err != nil {
			return err
		}
		defer src.Close()

		dst, err := network.New(opts.out, netOpts...)
		if err != nil {
			return err
		}
		if report, err = conv.FeedToNetwork(src, dst); err != nil {
			return err
		}
		if err := dst.Write(); err != nil {
			return err
		}
		tables = dst.Tables()

	default:
		return fmt.Errorf("%w: -from must be network or feed, got %q", table.ErrValidation, opts.from)
	}

	printReport(stdout, report, notices)

	if !opts.store {
		return nil
	}
	return store(ctx, cfg, logger, opts.schema, tables, stdout)
}

func printReport(w io.Writer, report convert.Report, notices []network.Notice) {
	fmt.Fprintf(w, "job %s (%s) in %s\n", report.JobID, report.Direction, report.Duration.Round(time.Millisecond))

	names := make([]string, 0, len(report.Rows))
	for name := range report.Rows {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %d rows\n", name, report.Rows[name])
	}
	if report.Defaulted > 0 {
		fmt.Fprintf(w, "  %d cells defaulted\n", report.Defaulted)
	}
	for _, n := range notices {
		fmt.Fprintf(w, "  notice: %s\n", n)
	}
}

func store(ctx context.Context, cfg *config.Config, logger *slog.Logger, schema string, tables []*table.Table, stdout io.Writer) error {
	if !cfg.Database.Enabled() {
		return errors.New("-store needs DATABASE_URL")
	}
	if schema == "" {
		schema = cfg.Database.Schema
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Database.Timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	sink, err := pgsink.New(pool, schema, pgsink.WithLogger(logger))
	if err != nil {
		return err
	}
	stored, err := sink.Populate(ctx, tables...)
	if err != nil {
		return err
	}
	for _, t := range tables {
		name := pgsink.TableName(t.Schema())
		fmt.Fprintf(stdout, "  stored %s.%s: %d rows\n", sink.Schema(), name, stored[name])
	}
	return nil
}
