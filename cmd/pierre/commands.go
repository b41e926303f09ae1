package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"pierre/internal/client"
	"pierre/internal/config"
	apperrors "pierre/internal/errors"
	"pierre/internal/eventdate"
	"pierre/internal/external"
	"pierre/internal/ledger"
	"pierre/internal/models"
	"pierre/internal/session"

	"github.com/spf13/cobra"
)

type app struct {
	cfg       *config.Config
	email     string
	password  string
	assumeYes bool
	client    *client.Client
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	a := &app{cfg: cfg}

	root := &cobra.Command{
		Use:           "pierre",
		Short:         "Browse events and share the bill of a reserved table",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			api := external.NewAPIClient(a.cfg.API)
			authorizer := consoleAuthorizer(cmd.InOrStdin(), cmd.OutOrStdout(), a.assumeYes)
			a.client = client.New(api, session.New(), authorizer)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.API.BaseURL, "url", cfg.API.BaseURL, "reservation API base URL")
	flags.StringVar(&a.email, "email", os.Getenv("PIERRE_EMAIL"), "account email")
	flags.StringVar(&a.password, "password", os.Getenv("PIERRE_PASSWORD"), "account password")
	flags.BoolVarP(&a.assumeYes, "yes", "y", false, "treat every payment as authorized")

	root.AddCommand(
		a.eventsCmd(),
		a.tablesCmd(),
		a.reserveCmd(),
		a.lookupCmd(),
		a.contributeCmd(),
		a.cancelCmd(),
		a.mineCmd(),
	)

	return root
}

// reportError prints err with a hint for the failures a user can act on.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err)
	switch {
	case apperrors.Is(err, apperrors.KindAuthRequired):
		fmt.Fprintln(w, "Pass --email and --password, or set PIERRE_EMAIL and PIERRE_PASSWORD.")
	case apperrors.Is(err, apperrors.KindLookupFailed):
		fmt.Fprintln(w, "The service could not be reached, try again.")
	}
}

func (a *app) login(cmd *cobra.Command) error {
	if _, ok := a.client.Session().CurrentUser(); ok {
		return nil
	}
	if a.email == "" {
		return apperrors.New(apperrors.KindAuthRequired, "please login first")
	}
	_, err := a.client.Login(cmd.Context(), a.email, a.password)
	return err
}

func (a *app) eventsCmd() *cobra.Command {
	var query, date string
	var grouped bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List upcoming events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			feed := a.client.NewEventFeed()
			defer feed.Close()
			if err := feed.Refresh(ctx); err != nil {
				return err
			}

			var anchor *eventdate.Date
			if date != "" {
				d, err := eventdate.Parse(date, time.Now())
				if err != nil {
					return err
				}
				anchor = &d
			}

			out := cmd.OutOrStdout()
			if !grouped {
				printEvents(out, feed.Visible(ctx, query, anchor))
				return nil
			}
			for _, b := range feed.Sections(ctx, query, anchor, a.cfg.Locale) {
				fmt.Fprintf(out, "== %s ==\n", b.Header)
				printEvents(out, b.Events)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "fuzzy match on title, venue and description")
	cmd.Flags().StringVar(&date, "date", "", "only events on or after this date")
	cmd.Flags().BoolVar(&grouped, "grouped", false, "group events by day")
	return cmd
}

func (a *app) findEvent(cmd *cobra.Command, id string) (models.Event, error) {
	feed := a.client.NewEventFeed()
	defer feed.Close()
	if err := feed.Refresh(cmd.Context()); err != nil {
		return models.Event{}, err
	}
	event, ok := feed.Event(id)
	if !ok {
		return models.Event{}, apperrors.New(apperrors.KindNotFound, "event %s not found", id)
	}
	return event, nil
}

func (a *app) tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables EVENT_ID",
		Short: "List the available tables of an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			event, err := a.findEvent(cmd, args[0])
			if err != nil {
				return err
			}
			tables, err := a.client.ListAvailableTables(cmd.Context(), event)
			if err != nil {
				return err
			}
			printTables(cmd.OutOrStdout(), tables)
			return nil
		},
	}
}

func (a *app) reserveCmd() *cobra.Command {
	var (
		eventID, tableID string
		people, shares   int
		phones           []string
		contact          models.ContactInfo
		requests         string
	)

	cmd := &cobra.Command{
		Use:   "reserve",
		Short: "Reserve a table and pay your share",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := a.login(cmd); err != nil {
				return err
			}

			event, err := a.findEvent(cmd, eventID)
			if err != nil {
				return err
			}
			tables, err := a.client.ListAvailableTables(ctx, event)
			if err != nil {
				return err
			}
			event.Tables = tables

			var requested *models.Table
			if tableID != "" {
				for i := range tables {
					if tables[i].ID.String() == tableID {
						requested = &tables[i]
					}
				}
				if requested == nil {
					return apperrors.New(apperrors.KindNotFound, "table %s is not available", tableID)
				}
			}
			table := client.SelectDefaultTable(event, requested)
			if table == nil {
				return apperrors.New(apperrors.KindNotFound, "no tables available for %s", event.Title)
			}

			params := ledger.CreateParams{
				Table:              *table,
				EventID:            event.ID,
				NumPeople:          people,
				ContributionPeople: ledger.ClampPeople(shares, people),
				GuestPhones:        phones,
				Contact:            contact,
			}
			if r := strings.TrimSpace(requests); r != "" {
				params.SpecialRequests = &r
			}

			res, err := a.client.CreateReservation(ctx, params)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res, "Payment cancelled, no table was reserved.")
		},
	}

	f := cmd.Flags()
	f.StringVar(&eventID, "event", "", "event id")
	f.StringVar(&tableID, "table", "", "table id (default: first available)")
	f.IntVarP(&people, "people", "n", 1, "party size, you included")
	f.IntVar(&shares, "shares", 1, "shares you pay now")
	f.StringSliceVar(&phones, "phone", nil, "guest phone number, repeatable")
	f.StringVar(&contact.Name, "name", "", "contact name")
	f.StringVar(&contact.Surname, "surname", "", "contact surname")
	f.StringVar(&contact.Email, "contact-email", "", "contact email")
	f.StringVar(&contact.Phone, "contact-phone", "", "contact phone")
	f.StringVar(&requests, "requests", "", "special requests")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func (a *app) lookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup CODE",
		Short: "Show a reservation by its code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.client.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printReservation(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func (a *app) contributeCmd() *cobra.Command {
	var people int

	cmd := &cobra.Command{
		Use:   "contribute CODE",
		Short: "Pay shares toward someone's reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			current, err := a.client.Lookup(ctx, args[0])
			if err != nil {
				return err
			}
			res, err := a.client.Contribute(ctx, current, people)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res, "Payment cancelled, nothing was paid.")
		},
	}

	cmd.Flags().IntVarP(&people, "people", "n", 1, "number of shares to pay")
	return cmd
}

func (a *app) cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel CODE",
		Short: "Cancel a reservation you created",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.login(cmd); err != nil {
				return err
			}
			res, err := a.client.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printReservation(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func (a *app) mineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List the reservations you created",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.login(cmd); err != nil {
				return err
			}
			list, err := a.client.MyReservations(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tSTATUS\tPEOPLE\tPAID\tTOTAL")
			for _, r := range list {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", r.Code, r.Status, r.NumPeople,
					models.FormatEuro(r.AmountPaid), models.FormatEuro(r.TotalAmount))
			}
			return w.Flush()
		},
	}
}

func printEvents(out io.Writer, events []models.Event) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATE\tTITLE\tVENUE")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Title, e.Venue)
	}
	_ = w.Flush()
}

func printTables(out io.Writer, tables []models.Table) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tZONE\tSEATS\tMIN SPEND")
	for _, t := range tables {
		zone := ""
		if t.Zone != nil {
			zone = *t.Zone
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", t.ID, t.Name, zone, t.Capacity, models.FormatEuro(t.MinSpend))
	}
	_ = w.Flush()
}

func printResult(out io.Writer, res client.Result, cancelledMsg string) error {
	if res.Cancelled || res.Reservation == nil {
		fmt.Fprintln(out, cancelledMsg)
		return nil
	}
	printReservation(out, *res.Reservation)
	return nil
}

func printReservation(out io.Writer, r models.Reservation) {
	fmt.Fprintf(out, "Reservation %s (%s)\n", r.Code, r.Status)
	if r.Event != nil {
		fmt.Fprintf(out, "  %s, %s, %s\n", r.Event.Title, r.Event.Venue, r.Event.Date)
	}
	if r.Table != nil {
		fmt.Fprintf(out, "  %s for %d people\n", r.Table.Name, r.NumPeople)
	}
	fmt.Fprintf(out, "  paid %s of %s, %s remaining\n",
		models.FormatEuro(r.AmountPaid), models.FormatEuro(r.TotalAmount), models.FormatEuro(r.AmountRemaining()))
	if r.Status == models.StatusConfirmed {
		fmt.Fprintf(out, "  share the code %s with your guests\n", r.Code)
	}
}
