package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/unseelie-shop/internal/client"
	"github.com/xenking/unseelie-shop/internal/domain/cart"
	"github.com/xenking/unseelie-shop/internal/domain/catalog"
	"github.com/xenking/unseelie-shop/internal/storage/file"
	"github.com/xenking/unseelie-shop/internal/storage/memory"
)

// cli carries the global flags shared by every command.
type cli struct {
	out io.Writer
	lg  *zap.Logger

	stateDir    string
	catalogPath string
	apiURL      string
	verbose     bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out, lg: zap.NewNop()}

	root := &cobra.Command{
		Use:   "cartctl",
		Short: "Manage the Unseelie Workshop cart from a terminal",
		Long: `Manage the Unseelie Workshop cart from a terminal.

The cart is kept in a local state directory, the same way the storefront
keeps it in the browser, and checkout goes through the storefront API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !c.verbose {
				return nil
			}
			lg, err := zap.NewDevelopment()
			if err != nil {
				return errors.Wrap(err, "create logger")
			}
			c.lg = lg
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = c.lg.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.stateDir, "state-dir", defaultStateDir(), "Directory holding the cart snapshot")
	flags.StringVar(&c.catalogPath, "catalog", "", "Catalog file; fetched from --api when empty")
	flags.StringVar(&c.apiURL, "api", "http://localhost:8080", "Storefront base URL")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(
		c.addCmd(),
		c.removeCmd(),
		c.qtyCmd(),
		c.stepCmd("inc", "Increase the quantity of a line by one", (*cart.Store).Increment),
		c.stepCmd("dec", "Decrease the quantity of a line by one, removing it at zero", (*cart.Store).Decrement),
		c.showCmd(),
		c.checkoutCmd(),
		c.productsCmd(),
	)
	return root
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".unseelie"
	}
	return filepath.Join(dir, "unseelie-shop")
}

// loadStore restores the cart into surface. When the state directory is
// unusable the cart lives in memory for this invocation only.
func (c *cli) loadStore(surface cart.Surface) (*cart.Store, error) {
	var storage cart.Storage
	kv, err := file.NewKV(c.stateDir)
	if err != nil {
		c.lg.Warn("Cart state directory unusable, changes will not be kept",
			zap.String("dir", c.stateDir), zap.Error(err))
		storage = memory.NewKV()
	} else {
		storage = kv
	}
	checkout, err := client.NewCheckout(c.apiURL)
	if err != nil {
		return nil, err
	}
	return cart.Load(storage, surface, checkout, c.lg), nil
}

func (c *cli) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if c.catalogPath != "" {
		f, err := os.Open(c.catalogPath)
		if err != nil {
			return nil, errors.Wrap(err, "open catalog")
		}
		defer func() { _ = f.Close() }()
		return catalog.Decode(f)
	}

	endpoint := strings.TrimSuffix(c.apiURL, "/") + "/data/products.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	hc := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch catalog")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("fetch catalog: status %d", resp.StatusCode)
	}
	return catalog.Decode(resp.Body)
}
