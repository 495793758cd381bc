package cli

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"homecare/portal/internal/apiclient"
	"homecare/portal/internal/authflow"
	"homecare/portal/internal/audit"
	"homecare/portal/internal/config"
)

func parseTimeout(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --timeout %q: %w", s, err)
	}
	return d, nil
}

// apiAuditor forwards client-side audit events to the portal's collection
// endpoint. Delivery is best effort.
type apiAuditor struct{}

func (apiAuditor) Record(ctx context.Context, event audit.Event) {
	_, err := client.Audit(ctx, apiclient.AuditEventRequest{
		Action:    event.Action,
		SubjectID: event.SubjectID,
		Metadata:  withEvent(event),
	})
	if err != nil {
		logger.Debug().Err(err).Str("action", event.Action).Msg("audit delivery failed")
	}
}

func withEvent(event audit.Event) map[string]any {
	meta := make(map[string]any, len(event.Metadata)+2)
	for k, v := range event.Metadata {
		meta[k] = v
	}
	if event.Event != "" {
		meta["event"] = event.Event
	}
	if event.Error != "" {
		meta["error"] = event.Error
	}
	return meta
}

func newLoginCmd() *cobra.Command {
	var (
		userID string
		code   string
		next   string
		auth   config.EmbeddedAuthConfig
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in through the embedded provider and MFA",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			flow := authflow.New(client, auth, authflow.NavigatorFunc(printer(cmd)), apiAuditor{}, logger)

			if err := flow.BeginEmbeddedAuth(ctx); err != nil {
				return err
			}
			if flow.State() != authflow.StateMFAPending {
				return fmt.Errorf("provider redirect must be completed in a browser")
			}
			if err := flow.BeginMFA(ctx, userID); err != nil {
				return err
			}

			if code == "" {
				fmt.Fprint(cmd.OutOrStdout(), "Verification code: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read code: %w", err)
				}
				code = strings.TrimSpace(line)
			}

			if err := flow.VerifyMFA(ctx, code, next); err != nil {
				return err
			}

			sess, err := client.Session(ctx)
			if err != nil {
				return fmt.Errorf("read session: %w", err)
			}
			printSession(cmd, sess)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (defaults to the dev user)")
	cmd.Flags().StringVar(&code, "code", "", "verification code (prompted if omitted)")
	cmd.Flags().StringVar(&next, "next", "", "local path to open after sign-in")
	cmd.Flags().StringVar(&auth.Domain, "domain", envOr("PORTAL_AUTH_DOMAIN", ""), "identity provider domain")
	cmd.Flags().StringVar(&auth.AppID, "app-id", envOr("PORTAL_AUTH_APPID", ""), "identity provider app id")
	cmd.Flags().StringVar(&auth.RedirectURI, "redirect-uri", envOr("PORTAL_AUTH_REDIRECTURI", ""), "provider redirect uri")
	cmd.Flags().StringVar(&auth.Region, "region", envOr("PORTAL_AUTH_REGION", ""), "identity provider region")
	return cmd
}

func newSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := client.Session(cmd.Context())
			if err != nil {
				return fmt.Errorf("get session: %w", err)
			}
			printSession(cmd, sess)
			return nil
		},
	}
}

func printSession(cmd *cobra.Command, sess apiclient.SessionResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:  %s\n", sess.UserID)
	if sess.Email != "" {
		fmt.Fprintf(out, "Email: %s\n", sess.Email)
	}
	fmt.Fprintf(out, "Role:  %s\n", sess.Role)
	fmt.Fprintf(out, "MFA:   %t\n", sess.MFAComplete)
	if sess.ExpiresAt != "" {
		fmt.Fprintf(out, "Until: %s\n", sess.ExpiresAt)
	}
}

func newCarePlansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "care-plans",
		Short: "List care plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.ListCarePlans(cmd.Context())
			if err != nil {
				return fmt.Errorf("list care plans: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(resp.Items) == 0 {
				fmt.Fprintln(out, "No care plans.")
				return nil
			}
			for _, p := range resp.Items {
				fmt.Fprintf(out, "%-10s %-10s %s\n", p.ID, p.Status, p.Title)
			}
			return nil
		},
	}
}

func newRequestCmd() *cobra.Command {
	var in apiclient.CreateServiceRequest

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Create a service request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.CreateServiceRequest(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("create service request: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Service request created: %s\n", resp.RequestID)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.ClientID, "client", "", "client id")
	cmd.Flags().StringVar(&in.Description, "description", "", "what is needed")
	cmd.Flags().StringVar(&in.RequestedDate, "date", time.Now().Format("2006-01-02"), "requested date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&in.Title, "title", "", "short title")
	cmd.Flags().StringVar(&in.Category, "category", "", "service category")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "low, medium or high")
	_ = cmd.MarkFlagRequired("client")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newMatchCmd() *cobra.Command {
	var clientID string

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Show baseline caregiver matches for a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Matching(cmd.Context(), apiclient.MatchingInput{ClientID: clientID})
			if err != nil {
				return fmt.Errorf("matching: %w", err)
			}
			for _, m := range resp.Candidates {
				fmt.Fprintf(cmd.OutOrStdout(), "%-6s %3d  %s\n", m.CaregiverID, m.Score, m.Rationale)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client", "", "client id")
	_ = cmd.MarkFlagRequired("client")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check portal health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("health: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Status: %s\n", resp.Status)
			names := make([]string, 0, len(resp.Services))
			for name := range resp.Services {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "  %-9s %s\n", name, resp.Services[name])
			}
			return nil
		},
	}
}

func newSignOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flow := authflow.New(client, config.EmbeddedAuthConfig{}, authflow.NavigatorFunc(printer(cmd)), apiAuditor{}, logger)
			return flow.SignOut(cmd.Context())
		},
	}
}
