package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"gemstore/internal/models"
	"gemstore/pkg/client"

	"github.com/spf13/cobra"
)

type requestsOptions struct {
	APIURL   string
	Email    string
	Password string
	Timeout  time.Duration
}

// NewRequestsCommand groups the admin order-request commands. They talk to a
// running server through its HTTP API.
func NewRequestsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &requestsOptions{}

	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Review and decide order requests",
	}
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", "http://localhost:8080/api", "base URL of the storefront API")
	cmd.PersistentFlags().StringVar(&opts.Email, "email", "", "admin email (default ADMIN_EMAIL)")
	cmd.PersistentFlags().StringVar(&opts.Password, "password", "", "admin password (default ADMIN_PASSWORD)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")

	cmd.AddCommand(newRequestsListCommand(rootOpts, opts))
	cmd.AddCommand(newRequestsDecideCommand(rootOpts, opts))
	return cmd
}

// adminClient signs in with the flag credentials, falling back to the
// configured admin pair.
func (o *requestsOptions) adminClient(rootOpts *RootOptions) (*client.Client, error) {
	email, password := o.Email, o.Password
	if email == "" || password == "" {
		cfg, err := rootOpts.LoadConfig()
		if err != nil {
			return nil, err
		}
		if email == "" {
			email = cfg.AdminEmail
		}
		if password == "" {
			password = cfg.AdminPassword
		}
	}
	if email == "" || password == "" {
		return nil, fmt.Errorf("admin credentials required: pass --email and --password or set ADMIN_EMAIL and ADMIN_PASSWORD")
	}

	c := client.New(strings.TrimRight(o.APIURL, "/"), o.Timeout)
	user, err := c.Login(email, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if !user.IsAdmin {
		return nil, fmt.Errorf("%s is not an admin", user.Email)
	}
	return c, nil
}

func newRequestsListCommand(rootOpts *RootOptions, opts *requestsOptions) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List order requests, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.adminClient(rootOpts)
			if err != nil {
				return err
			}
			defer c.Logout()

			all, err := c.ListAllOrderRequests()
			if err != nil {
				return err
			}
			requests := all[:0]
			for _, r := range all {
				if status == "" || string(r.Status) == status {
					requests = append(requests, r)
				}
			}

			return rootOpts.emit(cmd.OutOrStdout(), requests, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTATUS\tCUSTOMER\tPRODUCT\tQTY\tCREATED")
				for _, r := range requests {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
						r.ID, r.Status, r.UserEmail, r.ProductName, r.Quantity, r.CreatedAt.Format(time.RFC3339))
				}
				tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only show requests with this status (pending|accepted|declined)")
	return cmd
}

func newRequestsDecideCommand(rootOpts *RootOptions, opts *requestsOptions) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "decide <id> <accepted|declined>",
		Short: "Accept or decline a pending order request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid order request id %q", args[0])
			}
			status := models.OrderRequestStatus(strings.ToLower(args[1]))
			if !status.Terminal() {
				return fmt.Errorf("status must be accepted or declined, got %q", args[1])
			}

			c, err := opts.adminClient(rootOpts)
			if err != nil {
				return err
			}
			defer c.Logout()

			request, err := c.DecideOrderRequest(uint(id), status, message)
			if err != nil {
				return err
			}
			return rootOpts.emit(cmd.OutOrStdout(), request, func(w io.Writer) {
				fmt.Fprintf(w, "order request %d %s: %s\n", request.ID, request.Status, request.AdminMessage)
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "note shown to the customer")
	return cmd
}
