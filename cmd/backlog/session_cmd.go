package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/untoldecay/backlog/internal/config"
	"github.com/untoldecay/backlog/internal/session"
	"github.com/untoldecay/backlog/internal/ui"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Track active agent sessions",
	Long: `Track active agent sessions.

Sessions are presence records with heartbeats, stored in
.sessions.yaml under the data dir. Sessions whose heartbeat is older
than the configured threshold show as stale and surface in check.`,
}

var sessionStartCmd = &cobra.Command{
	Use:   "start [task-id]",
	Short: "Start a session for this agent",
	Long: `Start a session for this agent.

Optionally binds the session to the task being worked on.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		agentFlag, _ := cmd.Flags().GetString("agent")
		agent := actor(agentFlag)
		taskID := ""
		if len(args) == 1 {
			taskID = args[0]
		}
		s, err := sessionStore().Start(agent, taskID, time.Now())
		if err != nil {
			fatalError(err)
		}
		if jsonOutput {
			outputJSON(s)
			return
		}
		fmt.Printf("Session %s started for %s\n", s.ID, agent)
	},
}

var sessionHeartbeatCmd = &cobra.Command{
	Use:   "heartbeat [progress]",
	Short: "Refresh this agent's session",
	Long: `Refresh this agent's session.

Updates last_heartbeat and stores the optional progress string.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		agentFlag, _ := cmd.Flags().GetString("agent")
		agent := actor(agentFlag)
		progress := ""
		if len(args) == 1 {
			progress = args[0]
		}
		s, err := sessionStore().Heartbeat(agent, progress, time.Now())
		if err != nil {
			fatalError(err)
		}
		if jsonOutput {
			outputJSON(s)
			return
		}
		fmt.Printf("Heartbeat recorded for %s\n", agent)
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End this agent's sessions",
	Long:  `End this agent's sessions, removing them from the store.`,
	Run: func(cmd *cobra.Command, args []string) {
		agentFlag, _ := cmd.Flags().GetString("agent")
		agent := actor(agentFlag)
		removed, err := sessionStore().End(agent)
		if err != nil {
			fatalError(err)
		}
		if jsonOutput {
			outputJSON(map[string]int{"ended": removed})
			return
		}
		fmt.Printf("Ended %d session(s) for %s\n", removed, agent)
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded sessions",
	Long:  `List recorded sessions with heartbeat age and staleness.`,
	Run: func(cmd *cobra.Command, args []string) {
		sessions, err := sessionStore().List()
		if err != nil {
			fatalError(err)
		}
		if jsonOutput {
			if sessions == nil {
				sessions = []session.Session{}
			}
			outputJSON(sessions)
			return
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions.")
			return
		}
		threshold := config.StaleSessionThreshold()
		now := time.Now()
		for _, s := range sessions {
			line := fmt.Sprintf("%s  %s", s.Agent, humanize.Time(s.LastHeartbeat))
			if s.TaskID != "" {
				line += "  on " + s.TaskID
			}
			if s.Progress != "" {
				line += "  (" + s.Progress + ")"
			}
			if s.Stale(now, threshold) {
				line += "  " + ui.BlockedStyle.Render("[stale]")
			}
			fmt.Println(line)
		}
	},
}

func init() {
	for _, c := range []*cobra.Command{sessionStartCmd, sessionHeartbeatCmd, sessionEndCmd} {
		c.Flags().String("agent", "", "Agent identity (defaults to config/actor)")
	}
	sessionCmd.AddCommand(sessionStartCmd, sessionHeartbeatCmd, sessionEndCmd, sessionListCmd)
	rootCmd.AddCommand(sessionCmd)
}
