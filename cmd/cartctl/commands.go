package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/xenking/unseelie-shop/internal/domain/cart"
	"github.com/xenking/unseelie-shop/internal/domain/catalog"
	"github.com/xenking/unseelie-shop/internal/render/html"
	"github.com/xenking/unseelie-shop/internal/render/term"
)

func (c *cli) addCmd() *cobra.Command {
	var size string
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a catalog product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := c.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			p, err := cat.CartProduct(args[0], size)
			if err != nil {
				return err
			}
			surface := term.NewSurface(c.out)
			store, err := c.loadStore(surface)
			if err != nil {
				return err
			}
			store.Add(p)
			return surface.Flush()
		},
	}
	cmd.Flags().StringVar(&size, "size", "", "Size label for sized products")
	return cmd
}

func (c *cli) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <line-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return c.mutate(func(s *cart.Store) { s.Remove(args[0]) })
		},
	}
}

func (c *cli) qtyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qty <line-id> <quantity>",
		Short: "Set the quantity of a line; below one removes it",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Wrapf(err, "parse quantity %q", args[1])
			}
			return c.mutate(func(s *cart.Store) { s.UpdateQty(args[0], qty) })
		},
	}
}

func (c *cli) stepCmd(use, short string, step func(*cart.Store, string)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <line-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return c.mutate(func(s *cart.Store) { step(s, args[0]) })
		},
	}
}

func (c *cli) mutate(fn func(s *cart.Store)) error {
	surface := term.NewSurface(c.out)
	store, err := c.loadStore(surface)
	if err != nil {
		return err
	}
	fn(store)
	return surface.Flush()
}

func (c *cli) showCmd() *cobra.Command {
	var asHTML bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the cart drawer",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if asHTML {
				surface := html.NewSurface()
				store, err := c.loadStore(surface)
				if err != nil {
					return err
				}
				store.Open()
				if err := surface.Write(c.out); err != nil {
					return err
				}
				_, err = fmt.Fprintln(c.out)
				return err
			}
			return c.mutate(func(*cart.Store) {})
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "Print the drawer markup instead")
	return cmd
}

func (c *cli) checkoutCmd() *cobra.Command {
	var pageURL string
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Start a hosted checkout session for the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page := pageURL
			if page == "" {
				page = strings.TrimSuffix(c.apiURL, "/") + "/shop.html"
			}
			u, err := url.Parse(page)
			if err != nil {
				return errors.Wrap(err, "parse page url")
			}

			surface := term.NewSurface(c.out)
			store, err := c.loadStore(surface)
			if err != nil {
				return err
			}
			if err := store.Checkout(cmd.Context(), u); err != nil {
				if errors.Is(err, cart.ErrEmptyCart) {
					return err
				}
				_ = surface.Flush()
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pageURL, "page-url", "", "Page the checkout starts from; defaults to <api>/shop.html")
	return cmd
}

func (c *cli) productsCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List catalog products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := c.loadCatalog(cmd.Context())
			if err != nil {
				return err
			}
			printFilters(c, cat.FilterOptions(), filter)

			products := cat.Filter(filter)
			_, _ = fmt.Fprintln(c.out, catalog.CountLabel(len(products)))
			for _, p := range products {
				line := fmt.Sprintf("  %-24s %-28s %s", p.ID, p.Name, p.Price)
				for i, s := range p.Sizes {
					if i == 0 {
						line += "  sizes:"
					}
					line += " " + s.Label
				}
				_, _ = fmt.Fprintln(c.out, line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "all", `Filter: "all", "type:<key>" or "collection:<key>"`)
	return cmd
}

func printFilters(c *cli, opts []catalog.FilterOption, active string) {
	line := "Filters:"
	for _, o := range opts {
		if o.Value == active {
			line += " [" + o.Label + "]"
			continue
		}
		line += " " + o.Label
	}
	_, _ = fmt.Fprintln(c.out, line)
}
