package cmd

import "github.com/spf13/cobra"

var winixctlCmd = &cobra.Command{
	Use:   "winixctl",
	Short: "Boot and drive a simulated WINIX kernel from the command line.",
	Run:   runWinixctl,
}

var bootCmd = &cobra.Command{
	Use:   "boot",
	Short: "Boot a kernel and print its initial process table.",
	Run:   runBoot,
}

var psCmd = &cobra.Command{
	Use:     "ps",
	Aliases: []string{"process"},
	Short:   "List every live process in the simulated process table.",
	Run:     runPs,
}

var memCmd = &cobra.Command{
	Use:   "mem",
	Short: "Summarize the simulated physical page bitmap.",
	Run:   runMem,
}

var runCmd = &cobra.Command{
	Use:   "run [image]",
	Short: "Start a user process from a local file, a git ref, or a GitHub release asset.",
	Run:   runRun,
}

var sendCmd = &cobra.Command{
	Use:   "send [to-pid] [type] [i0] [i1] [i2]",
	Short: "Send a message from one preloaded process to another.",
	Run:   runSend,
}

var killCmd = &cobra.Command{
	Use:   "kill [pid] [signal]",
	Short: "Deliver a signal to a preloaded process.",
	Run:   runKill,
}

var waitCmd = &cobra.Command{
	Use:   "wait [pid]",
	Short: "Block pid on its children, optionally after exiting one of them.",
	Run:   runWait,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Boot a kernel and serve the read-only webui dashboard over it.",
	Run:   runServe,
}

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Advance the scheduler tick by tick, printing the ready process table after each.",
	Run:   runTrace,
}
