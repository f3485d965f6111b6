package cmd

import "github.com/spf13/cobra"

type outputType int

const (
	tableOut outputType = iota
	jsonOut
)

const (
	outputFlag    = "output"
	pagesFlag     = "pages"
	startFlag     = "start"
	entryFlag     = "entry"
	priorityFlag  = "priority"
	nameFlag      = "name"
	fromGitFlag   = "from-git"
	gitRefFlag    = "git-ref"
	fromRelFlag   = "from-release"
	ghTokenFlag   = "github-token"
	fromPidFlag   = "from"
	exitChildFlag = "exit-child"
	addrFlag      = "addr"
	ticksFlag     = "ticks"
)

// bootOpts is shared by every subcommand that needs a freshly booted
// *kernel.Kernel to act against: how big to size the simulated machine, and
// which user images to preload before the subcommand's own action runs.
type bootOpts struct {
	pages int
	start []string
}

func init() {
	for _, c := range []*cobra.Command{bootCmd, psCmd, memCmd, runCmd, sendCmd, killCmd, waitCmd, serveCmd, traceCmd} {
		c.Flags().Int(pagesFlag, 0, "Physical page count for the simulated machine. Defaults to sizing from the host via hostinfo.")
		c.Flags().StringArray(startFlag, nil, "Preload a user image before running this command, as name=path. Repeatable.")
	}

	psCmd.Flags().StringP(outputFlag, "o", "table", "Output type for command [table (default), json].")
	memCmd.Flags().StringP(outputFlag, "o", "table", "Output type for command [table (default), json].")

	runCmd.Flags().Uint64(entryFlag, 0, "Entry point address for the started process.")
	runCmd.Flags().Int(priorityFlag, 3, "Scheduling priority (0=system,1=kernel,3=user,4=idle).")
	runCmd.Flags().String(nameFlag, "", "Process name. Defaults to the image name.")
	runCmd.Flags().String(fromGitFlag, "", "Resolve the image from a git repository, as repo-url:path-in-repo.")
	runCmd.Flags().String(gitRefFlag, "main", "Git ref (tag, branch, or commit) to resolve --from-git against.")
	runCmd.Flags().String(fromRelFlag, "", "Resolve the image from a GitHub release asset, as owner/repo:tag:asset.")
	runCmd.Flags().String(ghTokenFlag, "", "GitHub token for --from-release, for private repositories or rate limits.")

	sendCmd.Flags().Int(fromPidFlag, 0, "proc_nr of the sender (index into --start, in order started).")

	waitCmd.Flags().Int(exitChildFlag, -1, "Exit this child's proc_nr before waiting, to demonstrate immediate reaping.")

	serveCmd.Flags().String(addrFlag, "", "Address for the webui HTTP server. Defaults to :8080.")

	traceCmd.Flags().Int(ticksFlag, 10, "How many scheduler ticks to trace.")
}
