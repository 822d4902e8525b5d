package main

import (
	"github.com/spf13/cobra"

	"github.com/PadhikariDev/querynest/internal/directory"
	"github.com/PadhikariDev/querynest/internal/logger"
	"github.com/PadhikariDev/querynest/internal/model"
	"github.com/PadhikariDev/querynest/internal/realtime"
	"github.com/PadhikariDev/querynest/internal/session"
	"github.com/PadhikariDev/querynest/internal/tui"
	"github.com/PadhikariDev/querynest/internal/view"
)

func newChatCmd(a *app, staff bool) *cobra.Command {
	use, short := "chat", "Open your queries and chat with the support team"
	if staff {
		use, short = "staff", "Work the staff queue for the configured role tag"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// The TUI owns the terminal, so logs only go to --log-file.
			log := a.log
			if a.logFile == nil {
				log = logger.Discard()
			}

			id, err := session.Resolve(ctx, a.client)
			if err != nil {
				if directory.IsKind(err, directory.KindAuth) {
					return err
				}
				id = &model.Identity{UserName: a.cfg.UserName}
			}

			kind := view.KindUser
			if staff {
				kind = view.KindStaff
			}
			v, err := view.New(view.Options{
				Kind:      kind,
				Directory: directory.New(a.client, a.cfg.StaffRoleTag, log),
				Dialer:    &realtime.WebSocketDialer{Token: a.client.Token()},
				Endpoint:  a.cfg.RealtimeURL,
				Identity:  id,
				Reconnect: realtime.ReconnectPolicy{
					Enabled:         a.cfg.Reconnect.Enabled,
					InitialInterval: a.cfg.Reconnect.InitialInterval,
					MaxInterval:     a.cfg.Reconnect.MaxInterval,
					MaxElapsedTime:  a.cfg.Reconnect.MaxElapsedTime,
				},
				PingInterval: realtime.DefaultPingInterval,
				DedupeAll:    a.cfg.DedupeAll,
				Logger:       log,
			})
			if err != nil {
				return err
			}
			defer v.Unmount()

			if err := v.Mount(ctx); err != nil {
				return err
			}
			return tui.Run(ctx, v)
		},
	}
}
