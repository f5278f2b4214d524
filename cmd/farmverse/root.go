package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"farmverse/internal/models"

	"github.com/spf13/cobra"
)

type envKey struct{}

func newRootCmd() *cobra.Command {
	var e *env
	root := &cobra.Command{
		Use:           "farmverse",
		Short:         "FarmVerse storefront client",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			e, err = newEnv(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, e))
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if e != nil {
				e.close()
			}
		},
	}
	root.SetContext(context.Background())

	root.AddCommand(
		newProductsCmd(),
		newCartCmd(),
		newCheckoutCmd(),
		newOrdersCmd(),
		newLoginCmd(),
		newSignupCmd(),
		newLogoutCmd(),
		newFarmerCmd(),
		newSeedCmd(),
	)
	return root
}

func envFrom(cmd *cobra.Command) *env {
	return cmd.Context().Value(envKey{}).(*env)
}

func printProducts(w io.Writer, products []models.Product) {
	if len(products) == 0 {
		fmt.Fprintln(w, "no products")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tNAME\tPRICE\tFARMER\tCATEGORY\tSTOCK")
	for _, p := range products {
		category := p.Category
		if p.SubCategory != "" {
			category += "/" + p.SubCategory
		}
		key := p.Key()
		if p.Ref().IsLocal() {
			key += " (local)"
		}
		fmt.Fprintf(tw, "%s\t%s\t₹%.2f\t%s\t%s\t%s\n", key, p.Name, p.Price, p.Farmer, category, p.Stock)
	}
	tw.Flush()
}

func findProduct(products []models.Product, key string) (models.Product, bool) {
	for _, p := range products {
		if p.Key() == key {
			return p, true
		}
	}
	for _, p := range products {
		if strings.EqualFold(p.Name, key) {
			return p, true
		}
	}
	return models.Product{}, false
}
