package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gitlab.com/Cacophony/Monitor/pkg/monitor"
)

func newAddCommand(a *app) *cobra.Command {
	var request monitor.AddRequest

	cmd := &cobra.Command{
		Use:   "add URL",
		Short: "Start monitoring a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			request.Scope = a.scope
			request.URL = args[0]

			descriptor, err := a.registry.Add(ctx, request)
			if err != nil {
				return describe(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Now monitoring %s %s every %d minutes in <#%s>\n",
				descriptor.Type, descriptor.URL, descriptor.IntervalMinutes, descriptor.ChannelID)
			return nil
		},
	}

	cmd.Flags().StringVar(&request.Type, "type", string(monitor.SourceFeed), "source type (feed or social)")
	cmd.Flags().StringVar(&request.ChannelID, "channel", "", "channel to deliver new items to")
	cmd.Flags().StringVar(&request.UserID, "user", "", "user adding the monitor")
	cmd.Flags().IntVar(&request.IntervalMinutes, "interval", monitor.DefaultInterval, "minutes between checks")
	_ = cmd.MarkFlagRequired("channel")

	return cmd
}

func newRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "remove URL",
		Aliases: []string{"rm"},
		Short:   "Stop monitoring a source",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			err := a.registry.Remove(ctx, a.scope, args[0])
			if err != nil {
				return describe(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stopped monitoring %s\n", args[0])
			return nil
		},
	}
}

func newListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the monitored sources of a server",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			descriptors, err := a.registry.List(ctx, a.scope)
			if err != nil {
				return describe(err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), monitor.FormatList(descriptors, a.now()))
			return nil
		},
	}
}

func newEditCommand(a *app) *cobra.Command {
	var channelID string
	var interval int

	cmd := &cobra.Command{
		Use:   "edit URL",
		Short: "Change the channel or interval of a monitored source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			var request monitor.EditRequest
			if cmd.Flags().Changed("channel") {
				request.ChannelID = &channelID
			}
			if cmd.Flags().Changed("interval") {
				request.IntervalMinutes = &interval
			}

			descriptor, err := a.registry.Edit(ctx, a.scope, args[0], request)
			if err != nil {
				return describe(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s, checking every %d minutes in <#%s>\n",
				descriptor.URL, descriptor.IntervalMinutes, descriptor.ChannelID)
			return nil
		},
	}

	cmd.Flags().StringVar(&channelID, "channel", "", "new delivery channel")
	cmd.Flags().IntVar(&interval, "interval", 0, "new number of minutes between checks")

	return cmd
}
