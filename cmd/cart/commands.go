package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/nikolayk812/cartstore/internal/domain"
	"github.com/nikolayk812/cartstore/internal/store"
	"github.com/spf13/cobra"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		qty     int
		variant domain.Variant
	)

	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product from the catalog to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			product, err := a.catalog.GetProduct(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("catalog.GetProduct: %w", err)
			}

			_, err = a.store.Add(cmd.Context(), product, qty, variant)
			return tolerantPersist(cmd, err)
		},
	}

	cmd.Flags().IntVar(&qty, "qty", 1, "quantity to add")
	addVariantFlags(cmd, &variant)

	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	var variant domain.Variant

	cmd := &cobra.Command{
		Use:   "remove <product-id>",
		Short: "Remove a line item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.store.Remove(cmd.Context(), domain.NewLineKey(args[0], variant))
			return tolerantPersist(cmd, err)
		},
	}

	addVariantFlags(cmd, &variant)

	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var variant domain.Variant

	cmd := &cobra.Command{
		Use:     "update [--size S] [--color C] <product-id> <qty>",
		Short:   "Set the quantity of a line item, 0 removes it",
		Long:    "Set the quantity of a line item. Zero or a negative quantity removes it. Flags go before the arguments, so a negative quantity is not read as a flag.",
		Example: "  cart update --size M 7 3\n  cart update --size M 7 -1",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("qty[%s] is not a number: %w", args[1], err)
			}

			err = a.store.UpdateQuantity(cmd.Context(), domain.NewLineKey(args[0], variant), qty)
			return tolerantPersist(cmd, err)
		},
	}

	addVariantFlags(cmd, &variant)
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return tolerantPersist(cmd, a.store.Clear(cmd.Context()))
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print line items and totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printCart(cmd.OutOrStdout(), a.store)
		},
	}
}

func addVariantFlags(cmd *cobra.Command, variant *domain.Variant) {
	cmd.Flags().StringVar(&variant.Size, "size", "", "size variant")
	cmd.Flags().StringVar(&variant.Color, "color", "", "color variant")
}

// tolerantPersist turns a storage write failure into a warning, the mutation
// itself went through.
func tolerantPersist(cmd *cobra.Command, err error) error {
	if errors.Is(err, store.ErrPersist) {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		return nil
	}
	return err
}

func printCart(w io.Writer, s *store.Store) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "LINE\tNAME\tQTY\tUNIT\tTOTAL")
	for _, item := range s.Items() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			item.Key, item.Name, item.Quantity, item.UnitPrice, item.Total())
	}

	totals := s.Totals()
	_, _ = fmt.Fprintf(tw, "\nitems\t%d\n", totals.ItemCount)
	_, _ = fmt.Fprintf(tw, "subtotal\t%s\n", totals.Subtotal)
	_, _ = fmt.Fprintf(tw, "tax\t%s\n", totals.Tax)
	_, _ = fmt.Fprintf(tw, "shipping\t%s\n", totals.Shipping)
	_, _ = fmt.Fprintf(tw, "total\t%s\n", totals.Total)

	return tw.Flush()
}
