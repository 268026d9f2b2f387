package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/niksmo/shop/internal/adapter/fixtures"
	"github.com/spf13/pflag"
)

const (
	storagePathFlag = "storage-path"
	fixturesFlag    = "fixtures"
)

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(), syscall.SIGINT, syscall.SIGTERM,
	)
	defer cancel()

	storagePath, files := getFlagsValues()
	validateFlags(storagePath, files)

	set, err := readFixtures(files)
	if err != nil {
		slog.Error("failed to read fixtures", "err", err)
		fallDown()
	}

	db, err := fixtures.Open(storagePath)
	if err != nil {
		slog.Error("failed to open database", "err", err)
		fallDown()
	}

	if err := fixtures.NewLoader(db).Load(ctx, set); err != nil {
		slog.Error("failed to load fixtures", "err", err)
		fallDown()
	}
}

func getFlagsValues() (string, []string) {
	storagePath := pflag.StringP(storagePathFlag, "s", "",
		"postgres connection string")
	files := pflag.StringSliceP(fixturesFlag, "f", nil,
		"fixture files, users before products before orders")
	pflag.Parse()
	return *storagePath, *files
}

func validateFlags(storagePath string, files []string) {
	var errs []error

	if storagePath == "" {
		errs = append(errs, fmt.Errorf("--%s flag: required", storagePathFlag))
	}

	if len(files) == 0 {
		errs = append(errs, fmt.Errorf("--%s flag: required", fixturesFlag))
	}

	if len(errs) != 0 {
		slog.Error("too few args", "err", errors.Join(errs...))
		fallDown()
	}
}

func readFixtures(files []string) (fixtures.Set, error) {
	var set fixtures.Set
	for _, name := range files {
		f, err := os.Open(name)
		if err != nil {
			return fixtures.Set{}, err
		}
		fileSet, err := fixtures.Parse(f)
		_ = f.Close()
		if err != nil {
			return fixtures.Set{}, fmt.Errorf("%s: %w", name, err)
		}
		set.Merge(fileSet)
	}
	return set, nil
}

func fallDown() {
	os.Exit(2)
}
