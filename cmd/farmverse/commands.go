package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"farmverse/internal/checkout"
	"farmverse/internal/identity"
	"farmverse/internal/models"

	"github.com/spf13/cobra"
)

func newProductsCmd() *cobra.Command {
	var category, sub string
	var refresh bool
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := envFrom(cmd)
			if refresh {
				e.store.FetchProducts(cmd.Context())
			}
			products := e.store.Snapshot().Products
			if category != "" {
				products = e.store.ProductsInCategory(category, sub)
			}
			printProducts(cmd.OutOrStdout(), products)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only show this category (vegetable, fruit, supply, ...)")
	cmd.Flags().StringVar(&sub, "sub", "", "only show this subcategory")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "fetch the latest catalog from the backend first")
	return cmd
}

func newCartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change the cart",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the cart and its total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := envFrom(cmd)
			printProducts(cmd.OutOrStdout(), e.store.Snapshot().Cart)
			fmt.Fprintf(cmd.OutOrStdout(), "Total: ₹%.2f\n", e.store.CartTotal())
			return nil
		},
	}

	var quantity int
	add := &cobra.Command{
		Use:   "add <product-key-or-name>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFrom(cmd)
			p, ok := findProduct(e.store.Snapshot().Products, args[0])
			if !ok {
				return fmt.Errorf("no product %q in the catalog", args[0])
			}
			for i := 0; i < quantity; i++ {
				e.store.AddToCart(p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d x %s. Total: ₹%.2f\n", quantity, p.Name, e.store.CartTotal())
			return nil
		},
	}
	add.Flags().IntVarP(&quantity, "quantity", "q", 1, "how many to add")

	var all bool
	remove := &cobra.Command{
		Use:   "remove <product-key>",
		Short: "Remove one entry of a product, or all of them with --all",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFrom(cmd)
			key := args[0]
			if p, ok := findProduct(e.store.Snapshot().Cart, key); ok {
				key = p.Key()
			}
			if all {
				e.store.RemoveFromCart(key)
			} else {
				e.store.RemoveOneFromCart(key)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cart has %d items. Total: ₹%.2f\n", len(e.store.Snapshot().Cart), e.store.CartTotal())
			return nil
		},
	}
	remove.Flags().BoolVar(&all, "all", false, "remove every entry of the product")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			envFrom(cmd).store.ClearCart()
			fmt.Fprintln(cmd.OutOrStdout(), "Cart cleared")
			return nil
		},
	}

	cmd.AddCommand(show, add, remove, clearCmd)
	return cmd
}

func newCheckoutCmd() *cobra.Command {
	var form checkout.ShippingForm
	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for everything in the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := envFrom(cmd)
			order, err := e.checkout.Submit(cmd.Context(), form)
			if err != nil {
				return err
			}
			placed := e.store.Snapshot().Orders[0]
			fmt.Fprintf(cmd.OutOrStdout(), "Order %s confirmed (backend id %s). Total: ₹%.2f, payment: %s\n",
				placed.ID, order.ID, placed.Total, placed.PaymentMethod)
			return nil
		},
	}
	cmd.Flags().StringVar(&form.Name, "name", "", "full name")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&form.Address, "address", "", "delivery address")
	cmd.Flags().StringVar(&form.City, "city", "", "city")
	cmd.Flags().StringVar(&form.PinCode, "pin", "", "PIN code")
	cmd.Flags().StringVar(&form.PaymentMethod, "payment", models.DefaultPaymentMethod, "payment method")
	return cmd
}

func newOrdersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "Show the order history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			orders := envFrom(cmd).store.Snapshot().Orders
			if len(orders) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no orders yet")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tITEMS\tTOTAL\tSTATUS\tCITY")
			for _, o := range orders {
				fmt.Fprintf(tw, "%s\t%s\t%d\t₹%.2f\t%s\t%s\n", o.ID, o.Date.Format("02 Jan 2006 15:04"), len(o.Items), o.Total, o.Status, o.City)
			}
			return tw.Flush()
		},
	}
}

func credentialFlags(cmd *cobra.Command, creds *identity.Credentials) {
	cmd.Flags().StringVar(&creds.Email, "email", "", "email address")
	cmd.Flags().StringVar(&creds.Password, "password", "", "password")
	cmd.Flags().StringVar(&creds.Phone, "phone", "", "phone number, for one-time code sign-in")
	cmd.Flags().StringVar(&creds.OTP, "otp", "", "one-time code received by SMS")
}

func reportSession(cmd *cobra.Command, s *identity.Session, err error) error {
	if errors.Is(err, identity.ErrOTPRequired) {
		fmt.Fprintln(cmd.OutOrStdout(), "A one-time code was sent. Run the command again with --otp <code>.")
		return nil
	}
	if errors.Is(err, identity.ErrConfirmationRequired) {
		fmt.Fprintln(cmd.OutOrStdout(), "Check your inbox to confirm the account, then log in.")
		return nil
	}
	if err != nil {
		return err
	}
	name := s.User.Name
	if name == "" {
		name = s.User.Identity
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", name, s.User.Role)
	return nil
}

func newLoginCmd() *cobra.Command {
	var creds identity.Credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := envFrom(cmd).provider.SignIn(cmd.Context(), creds)
			return reportSession(cmd, s, err)
		},
	}
	credentialFlags(cmd, &creds)
	return cmd
}

func newSignupCmd() *cobra.Command {
	var creds identity.Credentials
	var role string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := models.ParseRole(role)
			if err != nil {
				return err
			}
			creds.Role = r
			s, err := envFrom(cmd).provider.SignUp(cmd.Context(), creds)
			return reportSession(cmd, s, err)
		},
	}
	credentialFlags(cmd, &creds)
	cmd.Flags().StringVar(&creds.Name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(models.RoleConsumer), "farmer or consumer")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out. The cart and order history are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := envFrom(cmd)
			err := e.provider.SignOut(cmd.Context())
			e.store.Logout()
			if err != nil {
				e.log.Warn().Err(err).Msg("sign out was not acknowledged by the identity service")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newFarmerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "farmer",
		Short: "Manage your listings",
	}

	inventory := &cobra.Command{
		Use:   "inventory",
		Short: "List your products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := envFrom(cmd)
			if _, err := requireFarmer(e); err != nil {
				return err
			}
			printProducts(cmd.OutOrStdout(), e.store.FarmerInventory())
			return nil
		},
	}

	var listing models.Product
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a listing on this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := envFrom(cmd)
			user, err := requireFarmer(e)
			if err != nil {
				return err
			}
			if strings.TrimSpace(listing.Name) == "" || listing.Price <= 0 {
				return errors.New("a listing needs --name and a positive --price")
			}
			if listing.Farmer == "" {
				listing.Farmer = user.Name
				if listing.Farmer == "" {
					listing.Farmer = user.Identity
				}
			}
			st := e.store.AddProductLocally(listing)
			fmt.Fprintf(cmd.OutOrStdout(), "Listed %s as %s. Run 'farmverse farmer publish %s' to put it online.\n",
				listing.Name, st.Products[0].Key(), st.Products[0].Key())
			return nil
		},
	}
	add.Flags().StringVar(&listing.Name, "name", "", "product name")
	add.Flags().Float64Var(&listing.Price, "price", 0, "price per unit")
	add.Flags().StringVar(&listing.Category, "category", "vegetable", "category (vegetable, fruit, grain, dairy, supply)")
	add.Flags().StringVar(&listing.SubCategory, "sub", "", "subcategory")
	add.Flags().StringVar(&listing.Image, "image", "", "image URL")
	add.Flags().StringVar(&listing.Stock, "stock", models.DefaultStock, "availability")

	publish := &cobra.Command{
		Use:   "publish <local-key>",
		Short: "Send a local listing to the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := envFrom(cmd)
			if _, err := requireFarmer(e); err != nil {
				return err
			}
			p, err := e.store.PublishLocalProduct(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %s with id %s\n", p.Name, p.ID)
			return nil
		},
	}

	cmd.AddCommand(inventory, add, publish)
	return cmd
}

func requireFarmer(e *env) (models.User, error) {
	st := e.store.Snapshot()
	if !st.IsAuthenticated || st.User == nil {
		return models.User{}, errors.New("sign in first with 'farmverse login'")
	}
	if st.User.Role != models.RoleFarmer {
		return models.User{}, errors.New("only farmers can manage listings")
	}
	return *st.User, nil
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Reset the backend catalog to the demo products and refresh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := envFrom(cmd)
			created, err := e.api.SeedCatalog(cmd.Context())
			if err != nil {
				return fmt.Errorf("seeding failed: %w", err)
			}
			e.store.FetchProducts(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d products\n", len(created))
			return nil
		},
	}
}
