package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/site-operator/go-sdk/pkg/messages"
)

func conversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Manage stored conversations",
	}
	cmd.AddCommand(listCmd(), showCmd(), deleteCmd())
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newConversationStore(cfg, logger)
			if err != nil {
				return err
			}
			list, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No conversations found.")
				return nil
			}
			fmt.Fprintf(out, "%-40s %-20s %s\n", "ID", "UPDATED", "TITLE")
			fmt.Fprintln(out, strings.Repeat("-", 80))
			for _, c := range list {
				fmt.Fprintf(out, "%-40s %-20s %s\n", c.ID, c.UpdatedAt.Format("2006-01-02 15:04"), c.Title)
			}
			return nil
		},
	}
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Show a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newConversationStore(cfg, logger)
			if err != nil {
				return err
			}
			c, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get conversation: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Conversation: %s\n", c.Title)
			fmt.Fprintf(out, "ID:           %s\n", c.ID)
			fmt.Fprintf(out, "Created:      %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintln(out, strings.Repeat("-", 80))
			for _, m := range c.Messages {
				if m.Content == "" || (m.Role != messages.RoleUser && m.Role != messages.RoleAssistant) {
					continue
				}
				fmt.Fprintf(out, "%s: %s\n\n", speaker(m.Role), m.Content)
			}
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := newSession(ctx, cfg, logger, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer sess.Close()
			if err := sess.svc.DeleteConversation(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete conversation: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation: %s\n", args[0])
			return nil
		},
	}
}
