package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeronDaniel/E-commerce-project/internal/app"
	"github.com/MeronDaniel/E-commerce-project/internal/config"
	"github.com/MeronDaniel/E-commerce-project/internal/domain"
	"github.com/MeronDaniel/E-commerce-project/internal/storefront"
	"github.com/MeronDaniel/E-commerce-project/internal/viewmodel"
	apperrors "github.com/MeronDaniel/E-commerce-project/pkg/errors"
	"github.com/MeronDaniel/E-commerce-project/pkg/logger"
	"github.com/MeronDaniel/E-commerce-project/pkg/money"
	"github.com/MeronDaniel/E-commerce-project/pkg/pagination"
)

// accessToken is the --token flag.
var accessToken string

// cartAction runs against a loaded view model.
type cartAction func(ctx context.Context, vm *viewmodel.ViewModel, out io.Writer) error

func newRootCmd() *cobra.Command {
	var promo string

	root := &cobra.Command{
		Use:           "cartview",
		Short:         "Inspect and edit the signed-in user's storefront cart",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&promo, "promo", "", "promo code to apply before printing totals")
	root.PersistentFlags().StringVar(&accessToken, "token", "", "bearer token; overrides STOREFRONT_ACCESS_TOKEN")

	var page, perPage int
	products := &cobra.Command{
		Use:   "products",
		Short: "List the catalog, one page at a time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, cv *app.CartView) error {
				result, err := cv.Store.ListProducts(ctx, pagination.New(page, perPage))
				if err != nil {
					return userError(err)
				}
				return renderProducts(cmd.OutOrStdout(), result)
			})
		},
	}
	products.Flags().IntVar(&page, "page", 1, "page number")
	products.Flags().IntVar(&perPage, "per-page", pagination.DefaultPerPage, "products per page")
	root.AddCommand(products)

	withCart := func(action cartAction) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), promo, action)
		}
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the cart and its price breakdown",
			Args:  cobra.NoArgs,
			RunE:  withCart(nil),
		},
		&cobra.Command{
			Use:   "add <product-id> <quantity>",
			Short: "Add units of a product to the cart",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, qty, err := parseLineArgs(args)
				if err != nil {
					return err
				}
				return withCart(func(ctx context.Context, vm *viewmodel.ViewModel, _ io.Writer) error {
					return vm.AddItem(ctx, id, qty)
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "set <product-id> <quantity>",
			Short: "Set a line's quantity; 0 removes it",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, qty, err := parseLineArgs(args)
				if err != nil {
					return err
				}
				return withCart(func(ctx context.Context, vm *viewmodel.ViewModel, _ io.Writer) error {
					return vm.SetQuantity(ctx, id, qty)
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "remove <product-id>",
			Short: "Remove a line from the cart",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseProductID(args[0])
				if err != nil {
					return err
				}
				return withCart(func(ctx context.Context, vm *viewmodel.ViewModel, _ io.Writer) error {
					return vm.RemoveItem(ctx, id)
				})(cmd, args)
			},
		},
		&cobra.Command{
			Use:   "promo <code>",
			Short: "Apply a promo code and print the discounted totals",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd.Context(), cmd.OutOrStdout(), args[0], nil)
			},
		},
		&cobra.Command{
			Use:   "count",
			Short: "Print the cart badge numbers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withView(cmd.Context(), func(ctx context.Context, vm *viewmodel.ViewModel) error {
					count, err := vm.RefreshCount(ctx)
					if err != nil {
						return userError(err)
					}
					_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d products, %d items\n", count.Count, count.TotalItems)
					return err
				})
			},
		},
	)
	return root
}

func parseProductID(s string) (domain.ProductID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", s)
	}
	return domain.ProductID(id), nil
}

func parseLineArgs(args []string) (domain.ProductID, int, error) {
	id, err := parseProductID(args[0])
	if err != nil {
		return 0, 0, err
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid quantity %q", args[1])
	}
	return id, qty, nil
}

// withApp builds the client stack from the environment and tears it down after fn.
func withApp(ctx context.Context, fn func(context.Context, *app.CartView) error) error {
	cfg, err := config.LoadCartView()
	if err != nil {
		return err
	}
	log := logger.New("cartview", cfg.LogLevel)

	cv, err := app.NewCartView(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = cv.Close(shutdownCtx)
	}()

	if accessToken != "" {
		cv.Session.SetToken(accessToken)
	}

	return fn(ctx, cv)
}

func withView(ctx context.Context, fn func(context.Context, *viewmodel.ViewModel) error) error {
	return withApp(ctx, func(ctx context.Context, cv *app.CartView) error {
		return fn(ctx, cv.ViewModel)
	})
}

// run loads the cart, performs action, applies the promo if any and prints.
func run(ctx context.Context, out io.Writer, promo string, action cartAction) error {
	return withView(ctx, func(ctx context.Context, vm *viewmodel.ViewModel) error {
		if err := vm.Load(ctx); err != nil {
			return userError(err)
		}
		if action != nil {
			if err := action(ctx, vm, out); err != nil {
				return userError(err)
			}
		}
		if promo != "" {
			if _, err := vm.ApplyPromo(ctx, promo); err != nil {
				return userError(err)
			}
		}
		return render(out, vm.View())
	})
}

func userError(err error) error {
	switch apperrors.KindOf(err) {
	case apperrors.KindUnauthenticated:
		return fmt.Errorf("%s (set STOREFRONT_ACCESS_TOKEN or pass --token)", apperrors.Message(err))
	default:
		return fmt.Errorf("%s", apperrors.Message(err))
	}
}

func render(out io.Writer, v viewmodel.View) error {
	t := v.Totals
	cur := t.Currency

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	table := &errWriter{w: tw}
	table.println("ID\tProduct\tQty\tUnit\tLine\t")
	for _, l := range v.Lines {
		unit := money.FormatCurrency(l.UnitPriceCents, cur)
		if l.OnSale() {
			unit += " (was " + money.FormatCurrency(l.OriginalUnitPriceCents, cur) + ")"
		}
		table.printf("%d\t%s\t%d\t%s\t%s\t\n", l.ProductID, l.Title, l.Quantity, unit, money.FormatCurrency(l.LineTotalCents(), cur))
	}
	if table.err != nil {
		return table.err
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	w := &errWriter{w: out}
	if len(v.Lines) == 0 {
		w.println("Your cart is empty.")
	}
	w.println("")
	w.printf("Subtotal (%d items): %s\n", t.TotalItems, money.FormatCurrency(t.SubtotalCents, cur))
	if t.SaleSavingsCents > 0 {
		w.printf("Sale savings:        -%s\n", money.FormatCurrency(t.SaleSavingsCents, cur))
	}
	if v.Promo != nil {
		w.printf("Promo %s (%d%%):    -%s\n", v.Promo.Code, v.Promo.DiscountPercent, money.FormatCurrency(t.PromoDiscountCents, cur))
	}
	if t.ShippingCents == 0 {
		w.println("Shipping:            FREE")
	} else {
		w.printf("Shipping:            %s\n", money.FormatCurrency(t.ShippingCents, cur))
	}
	w.printf("Tax:                 %s\n", money.FormatCurrency(t.TaxCents, cur))
	w.printf("Total:               %s\n", money.FormatCurrency(t.TotalCents, cur))
	if t.FreeShippingRemainingCents > 0 {
		w.printf("Add %s more for free shipping.\n", money.FormatCurrency(t.FreeShippingRemainingCents, cur))
	}
	if t.TotalSavingsCents > 0 {
		w.printf("You save %s.\n", money.FormatCurrency(t.TotalSavingsCents, cur))
	}
	if v.Stale {
		w.println("Warning: the cart could not be refreshed and may be out of date.")
	}
	return w.err
}

func renderProducts(out io.Writer, page storefront.ProductPage) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	table := &errWriter{w: tw}
	table.println("ID\tProduct\tPrice\tStock\t")
	for _, p := range page.Data {
		price := money.FormatCurrency(p.PriceCents, p.Currency)
		if p.IsOnSale && p.SalePriceCents != nil {
			price = money.FormatCurrency(*p.SalePriceCents, p.Currency) + " (was " + price + ")"
		}
		stock := strconv.Itoa(p.Stock)
		if p.Stock == 0 {
			stock = "sold out"
		}
		table.printf("%d\t%s\t%s\t%s\t\n", p.ID, p.Title, price, stock)
	}
	if table.err != nil {
		return table.err
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "Page %d of %d (%d products)\n", page.Page, max(page.TotalPages, 1), page.TotalCount)
	return err
}

// errWriter keeps the first write error; later writes are skipped.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err == nil {
		_, e.err = fmt.Fprintf(e.w, format, args...)
	}
}

func (e *errWriter) println(s string) {
	e.printf("%s\n", s)
}
