package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"storefront/internal/browse"
	"storefront/internal/render"
	"storefront/sdk/go/storefront"
)

func (a *app) registerCmd() *cobra.Command {
	var reg storefront.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.client.Register(cmd.Context(), reg)
			if err != nil {
				return a.explain(err)
			}
			fmt.Fprintf(a.out, "registered %s (id %d), now run `storefront login %s`\n", out.Username, out.ID, out.Username)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&reg.Email, "email", "", "email address")
	flags.StringVar(&reg.Username, "username", "", "username")
	flags.StringVar(&reg.Password, "password", "", "password")
	flags.StringVar(&reg.Name.Firstname, "firstname", "", "first name")
	flags.StringVar(&reg.Name.Lastname, "lastname", "", "last name")
	flags.StringVar(&reg.Phone, "phone", "", "10 digit phone number")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username-or-email>",
		Short: "Start a session and save its token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.client.Login(cmd.Context(), args[0], password)
			if err != nil {
				return a.explain(err)
			}
			if err := saveToken(a.tokenFile, sess.Token); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "logged in as %s until %s\n", sess.User.Username, sess.ExpiresAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.client.AccessToken() != "" {
				if err := a.client.Logout(cmd.Context()); err != nil {
					return a.explain(err)
				}
			}
			if err := removeToken(a.tokenFile); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "logged out")
			return nil
		},
	}
}

func (a *app) meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client.Me(cmd.Context())
			if err != nil {
				return a.explain(err)
			}
			fmt.Fprintf(a.out, "%s <%s> %s %s\n", user.Username, user.Email, user.Name.Firstname, user.Name.Lastname)
			return nil
		},
	}
}

func (a *app) productsCmd() *cobra.Command {
	var (
		category, title, sortOrder string
		minPrice, maxPrice         float64
		rating, page, pageSize     int
	)
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List one page of the product grid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			grid, err := a.client.Products(cmd.Context(), storefront.Query{
				Category: category,
				Title:    title,
				MinPrice: minPrice,
				MaxPrice: maxPrice,
				Rating:   rating,
				Sort:     browse.SortOrder(sortOrder),
				Page:     page,
				PageSize: pageSize,
			})
			if err != nil {
				return a.explain(err)
			}
			return render.WriteGrid(a.out, grid)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&category, "category", "", "only this category")
	flags.StringVar(&title, "title", "", "title contains, case-insensitive")
	flags.Float64Var(&minPrice, "min-price", 0, "lowest price")
	flags.Float64Var(&maxPrice, "max-price", 0, "highest price, no bound when 0")
	flags.IntVar(&rating, "rating", 0, "exact star rating, 1-5")
	flags.StringVar(&sortOrder, "sort", "", "price order: asc or desc")
	flags.IntVar(&page, "page", 1, "page number")
	flags.IntVar(&pageSize, "page-size", 0, "cards per page, server default when 0")
	return cmd
}

func (a *app) productCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "product <id>",
		Short: "Show product details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid product id %q", args[0])
			}
			detail, err := a.client.Product(cmd.Context(), id)
			if err != nil {
				return a.explain(err)
			}
			return render.WriteDetail(a.out, detail)
		},
	}
}

func (a *app) facetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "facets",
		Short: "Show categories, price range and rating counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			facets, err := a.client.Facets(cmd.Context())
			if err != nil {
				return a.explain(err)
			}
			return render.WriteFacets(a.out, facets)
		},
	}
}
