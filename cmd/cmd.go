// Package cmd implements winixctl, the command-line front end for booting
// and driving a simulated WINIX kernel. Each subcommand is self-contained:
// it boots its own *kernel.Kernel from the shared --pages/--start flags,
// performs its action, and prints the result, rather than sharing state
// across invocations.
package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/winix-os/winix/hostinfo"
	"github.com/winix-os/winix/imagestore"
	"github.com/winix-os/winix/kernel"
	"github.com/winix-os/winix/webui"
)

// SetupCLI constructs the cobra hierarchy for the winixctl CLI.
func SetupCLI() *cobra.Command {
	winixctlCmd.AddCommand(bootCmd)
	winixctlCmd.AddCommand(psCmd)
	winixctlCmd.AddCommand(memCmd)
	winixctlCmd.AddCommand(runCmd)
	winixctlCmd.AddCommand(sendCmd)
	winixctlCmd.AddCommand(killCmd)
	winixctlCmd.AddCommand(waitCmd)
	winixctlCmd.AddCommand(serveCmd)
	winixctlCmd.AddCommand(traceCmd)
	return winixctlCmd
}

func runWinixctl(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		cmd.Help()
		os.Exit(0)
	}
}

// bootKernel constructs a *kernel.Kernel from fs's shared --pages/--start
// flags: it sizes the machine (from --pages, or from the real host via
// hostinfo when --pages is unset or zero), starts the init kernel process
// and schedules it, and preloads every --start name=path image as a user
// process.
// It returns the kernel along with the proc_nr each preloaded image was
// assigned, in the order --start was given.
func bootKernel(fs *pflag.FlagSet) (*kernel.Kernel, []int, error) {
	opts := newBootOpts(fs)

	pages := opts.pages
	if pages <= 0 {
		reader := hostinfo.NewLinuxReader(hostinfo.LinuxReaderConfig{})
		mem, err := reader.GetMemory()
		if err != nil {
			pages = kernel.DefaultPageCount
		} else {
			pages = mem.PageCount(kernel.PageSize, kernel.DefaultPageCount*8)
		}
	}

	k := kernel.New(kernel.Config{PageCount: pages})
	if _, err := k.StartKernelProc(0, kernel.SystemPriority, "init"); err != kernel.OK {
		return nil, nil, fmt.Errorf("failed starting init process")
	}
	k.Schedule()

	var started []int
	for _, entry := range opts.start {
		name, path, err := splitNameEqualsPath(entry)
		if err != nil {
			return nil, nil, err
		}
		img, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed reading image %q: %w", path, err)
		}
		p, perr := k.StartUserProc(img, 0, kernel.UserPriority, name)
		if perr != kernel.OK {
			return nil, nil, fmt.Errorf("failed starting %q: %s", name, perr)
		}
		started = append(started, p.ProcNr)
	}

	return k, started, nil
}

func newBootOpts(fs *pflag.FlagSet) bootOpts {
	pages, _ := fs.GetInt(pagesFlag)
	start, _ := fs.GetStringArray(startFlag)
	return bootOpts{pages: pages, start: start}
}

func splitNameEqualsPath(entry string) (name, path string, err error) {
	parts := strings.SplitN(entry, "=", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("--start value %q must be of the form name=path", entry)
	}
	return parts[0], parts[1], nil
}

func resolveOutputType(fs *pflag.FlagSet) outputType {
	of, err := fs.GetString(outputFlag)
	if err != nil {
		return tableOut
	}
	switch of {
	case "json":
		return jsonOut
	default:
		return tableOut
	}
}

func runBoot(cmd *cobra.Command, args []string) {
	k, _, err := bootKernel(cmd.Flags())
	if err != nil {
		outputErrorAndFail(err)
	}
	fmt.Print(k.DumpRunnable())
}

func runPs(cmd *cobra.Command, args []string) {
	k, _, err := bootKernel(cmd.Flags())
	if err != nil {
		outputErrorAndFail(err)
	}
	ot := resolveOutputType(cmd.Flags())
	out, err := createPsOutput(k.Snapshot(), ot)
	if err != nil {
		outputErrorAndFail(err)
	}
	output(out)
}

func runMem(cmd *cobra.Command, args []string) {
	k, _, err := bootKernel(cmd.Flags())
	if err != nil {
		outputErrorAndFail(err)
	}
	ot := resolveOutputType(cmd.Flags())
	out, err := createMemOutput(k.MemStats(), ot)
	if err != nil {
		outputErrorAndFail(err)
	}
	output(out)
}

func runRun(cmd *cobra.Command, args []string) {
	fs := cmd.Flags()
	k, _, err := bootKernel(fs)
	if err != nil {
		outputErrorAndFail(err)
	}

	entry, _ := fs.GetUint64(entryFlag)
	priority, _ := fs.GetInt(priorityFlag)
	name, _ := fs.GetString(nameFlag)
	fromGit, _ := fs.GetString(fromGitFlag)
	gitRef, _ := fs.GetString(gitRefFlag)
	fromRelease, _ := fs.GetString(fromRelFlag)
	ghToken, _ := fs.GetString(ghTokenFlag)

	var img []byte
	switch {
	case fromGit != "":
		repoURL, path, splitErr := splitOnceLast(fromGit, ":")
		if splitErr != nil {
			outputErrorAndFail(fmt.Errorf("--from-git must be repo-url:path-in-repo: %w", splitErr))
		}
		src := imagestore.GitSource{RepoURL: repoURL, Path: path}
		img, err = src.Load(gitRef)
		if name == "" {
			name = path
		}
	case fromRelease != "":
		owner, rest, splitErr := splitOnce(fromRelease, ":")
		if splitErr != nil {
			outputErrorAndFail(fmt.Errorf("--from-release must be owner/repo:tag:asset: %w", splitErr))
		}
		src := imagestore.GitHubSource{Repo: owner, Token: ghToken}
		img, err = src.Load(rest)
		if name == "" {
			name = rest
		}
	case len(args) > 0:
		img, err = os.ReadFile(args[0])
		if name == "" {
			name = args[0]
		}
	default:
		cmd.Help()
		os.Exit(0)
	}
	if err != nil {
		outputErrorAndFail(err)
	}

	p, perr := k.StartUserProc(img, uintptr(entry), priority, name)
	if perr != kernel.OK {
		outputErrorAndFail(fmt.Errorf("failed starting %q: %s", name, perr))
	}
	fmt.Printf("started %s as proc_nr %d (pid %d)\n", name, p.ProcNr, p.Pid)
}

func runSend(cmd *cobra.Command, args []string) {
	if len(args) < 2 {
		cmd.Help()
		os.Exit(0)
	}
	fs := cmd.Flags()
	k, started, err := bootKernel(fs)
	if err != nil {
		outputErrorAndFail(err)
	}
	toPid, err := strconv.Atoi(args[0])
	if err != nil {
		outputErrorAndFail(fmt.Errorf("to-pid must be an integer: %w", err))
	}
	msgType, err := strconv.Atoi(args[1])
	if err != nil {
		outputErrorAndFail(fmt.Errorf("type must be an integer: %w", err))
	}
	fromNr, _ := fs.GetInt(fromPidFlag)
	from := k.GetProc(procNrForFlag(fromNr, started))
	if from == nil {
		outputErrorAndFail(fmt.Errorf("no preloaded process at proc_nr %d; pass --start and --from", fromNr))
	}

	msg := &kernel.Message{Type: msgType}
	for i, a := range args[2:] {
		if i >= len(msg.I) {
			break
		}
		v, perr := strconv.Atoi(a)
		if perr == nil {
			msg.I[i] = v
		}
	}

	res := k.Send(from, toPid, msg)
	fmt.Printf("send result: %s\n", res)
}

func runKill(cmd *cobra.Command, args []string) {
	if len(args) < 2 {
		cmd.Help()
		os.Exit(0)
	}
	k, _, err := bootKernel(cmd.Flags())
	if err != nil {
		outputErrorAndFail(err)
	}
	pid, err := strconv.Atoi(args[0])
	if err != nil {
		outputErrorAndFail(fmt.Errorf("pid must be an integer: %w", err))
	}
	sig, err := strconv.Atoi(args[1])
	if err != nil {
		outputErrorAndFail(fmt.Errorf("signal must be an integer: %w", err))
	}
	res := k.Kill(pid, kernel.Signal(sig))
	fmt.Printf("kill result: %s\n", res)
}

func runWait(cmd *cobra.Command, args []string) {
	if len(args) < 1 {
		cmd.Help()
		os.Exit(0)
	}
	fs := cmd.Flags()
	k, _, err := bootKernel(fs)
	if err != nil {
		outputErrorAndFail(err)
	}
	pid, err := strconv.Atoi(args[0])
	if err != nil {
		outputErrorAndFail(fmt.Errorf("pid must be an integer: %w", err))
	}
	parent := k.GetProc(pid)
	if parent == nil {
		outputErrorAndFail(fmt.Errorf("no process at proc_nr %d", pid))
	}

	exitChild, _ := fs.GetInt(exitChildFlag)
	if exitChild >= 0 {
		if child := k.GetProc(exitChild); child != nil {
			k.Exit(child, 0)
		}
	}

	gotPid, status, werr := k.Wait(parent)
	if werr != kernel.OK {
		fmt.Printf("wait result: %s\n", werr)
		return
	}
	fmt.Printf("reaped pid %d, status %d\n", gotPid, status)
}

func runServe(cmd *cobra.Command, args []string) {
	fs := cmd.Flags()
	k, _, err := bootKernel(fs)
	if err != nil {
		outputErrorAndFail(err)
	}
	addr, _ := fs.GetString(addrFlag)
	webui.New(k, addr).Serve()
}

func runTrace(cmd *cobra.Command, args []string) {
	fs := cmd.Flags()
	k, _, err := bootKernel(fs)
	if err != nil {
		outputErrorAndFail(err)
	}
	ticks, _ := fs.GetInt(ticksFlag)
	for i := 0; i < ticks; i++ {
		k.Tick()
		fmt.Printf("--- tick %d ---\n", k.Clock())
		fmt.Print(k.DumpRunnable())
	}
}

func procNrForFlag(nr int, started []int) int {
	if nr >= 0 && nr < len(started) {
		return started[nr]
	}
	return nr
}

func splitOnce(s, sep string) (a, b string, err error) {
	parts := strings.SplitN(s, sep, 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("expected a %q-separated pair in %q", sep, s)
	}
	return parts[0], parts[1], nil
}

// splitOnceLast splits on the last occurrence of sep, since fromGit's
// repo-url half can itself contain a colon (e.g. "https://").
func splitOnceLast(s, sep string) (a, b string, err error) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return "", "", fmt.Errorf("expected a %q-separated pair in %q", sep, s)
	}
	return s[:i], s[i+len(sep):], nil
}

func output(out []byte) {
	fmt.Printf("%s", out)
}

func outputErrorAndFail(err error) {
	fmt.Println(err)
	os.Exit(1)
}

func createPsOutput(procs []kernel.ProcSnapshot, ot outputType) ([]byte, error) {
	if ot == jsonOut {
		return json.MarshalIndent(procs, "", "  ")
	}
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"proc_nr", "pid", "ppid", "name", "state", "priority", "ticks_left", "pages"})
	for _, p := range procs {
		table.Append([]string{
			strconv.Itoa(p.ProcNr),
			strconv.Itoa(p.Pid),
			strconv.Itoa(p.ParentPid),
			p.Name,
			p.State.String(),
			strconv.Itoa(p.Priority),
			strconv.Itoa(p.TicksLeft),
			strconv.Itoa(p.PageCount),
		})
	}
	table.Render()
	return buf.Bytes(), nil
}

func createMemOutput(stats kernel.MemStats, ot outputType) ([]byte, error) {
	if ot == jsonOut {
		return json.MarshalIndent(stats, "", "  ")
	}
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"total pages", "free pages", "page size"})
	table.Append([]string{
		strconv.Itoa(stats.TotalPages),
		strconv.Itoa(stats.FreePages),
		strconv.Itoa(stats.PageSize),
	})
	table.Render()
	return buf.Bytes(), nil
}
