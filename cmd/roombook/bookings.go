package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/room-booking/internal/model"
	"github.com/Shivanand-hulikatti/room-booking/internal/service"
)

func bookCmd() *cobra.Command {
	var req model.BookingRequest
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Submit a booking as --as",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.BookingService) error {
				r, err := svc.Submit(ctx, actor(cmd), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "booked %s: %s %s %s-%s (%s)\n", r.ID, r.Resource, r.Date, r.Start, r.End, r.Status)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Resource, "room", "", "room name")
	f.StringVar(&req.Date, "date", "", "date (YYYY-MM-DD)")
	f.StringVar(&req.Start, "start", "", "start time (HH:MM)")
	f.StringVar(&req.End, "end", "", "end time (HH:MM)")
	f.StringVar(&req.ExpectedArrival, "arrival", "", "expected arrival time (HH:MM)")
	f.StringVar(&req.Purpose, "purpose", "", "purpose of the booking")
	return cmd
}

func listCmd() *cobra.Command {
	var all bool
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bookings for --as, or every booking with --all --admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.BookingService) error {
				var views []model.BookingView
				var alerts []model.SafetyAlert
				if all {
					res, err := svc.ListAllBookings(ctx, actor(cmd))
					if err != nil {
						return err
					}
					views, alerts = res.Bookings, res.SafetyAlerts
				} else {
					res, err := svc.ListBookings(ctx, actor(cmd))
					if err != nil {
						return err
					}
					views = res
				}
				return printBookings(cmd.OutOrStdout(), output, views, alerts)
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every booking (admin)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, csv or json")
	return cmd
}

func printBookings(w io.Writer, format string, views []model.BookingView, alerts []model.SafetyAlert) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if alerts != nil {
			return enc.Encode(model.AdminBookings{Bookings: views, SafetyAlerts: alerts})
		}
		return enc.Encode(views)
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Room", "Date", "Start", "End", "Expected", "User", "Status", "Arrived", "Alert"})
	for _, v := range views {
		alert := ""
		if v.SafetyAlert {
			alert = "yes"
		}
		tw.AppendRow(table.Row{v.ID, v.Resource, v.Date, v.Start, v.End, v.ExpectedArrival, v.Owner, v.Status, v.HasArrived, alert})
	}

	switch format {
	case "csv":
		tw.RenderCSV()
	case "table", "":
		tw.Render()
		for _, a := range alerts {
			fmt.Fprintf(w, "ALERT %s (%s, %s): %s\n", a.BookingID, a.Owner, a.Resource, a.Message)
		}
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	return nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <booking-id> <Approved|Rejected>",
		Short: "Approve or reject a booking (requires --admin)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.BookingService) error {
				r, err := svc.SetStatus(ctx, actor(cmd), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", r.ID, r.Status)
				return nil
			})
		},
	}
}

func arriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "arrive <booking-id>",
		Short: "Mark arrival for a booking held by --as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.BookingService) error {
				r, err := svc.MarkArrived(ctx, actor(cmd), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s arrived at %s\n", r.ID, r.ArrivalMarkedAt.Format("2006-01-02 15:04:05"))
				return nil
			})
		},
	}
}

func availableCmd() *cobra.Command {
	var room, date, start, end string
	cmd := &cobra.Command{
		Use:   "available",
		Short: "Check whether a slot is currently free",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(ctx context.Context, svc *service.BookingService) error {
				free, err := svc.Availability(ctx, room, date, start, end)
				if err != nil {
					return err
				}
				if !free {
					return fmt.Errorf("%s is taken on %s between %s and %s", room, date, start, end)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "free")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&room, "room", "", "room name")
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "start time (HH:MM)")
	cmd.Flags().StringVar(&end, "end", "", "end time (HH:MM)")
	return cmd
}
