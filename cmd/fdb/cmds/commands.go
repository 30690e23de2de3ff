package cmds

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fdbdbg/fdb/pkg/config"
	"github.com/fdbdbg/fdb/pkg/logflags"
	"github.com/fdbdbg/fdb/pkg/proc"
	"github.com/fdbdbg/fdb/pkg/proc/native"
	"github.com/fdbdbg/fdb/pkg/terminal"
	"github.com/fdbdbg/fdb/pkg/version"
	"github.com/fdbdbg/fdb/service/debugger"
)

var (
	// log is whether to log debug statements.
	log bool
	// logOutput is a comma separated list of components that should produce debug output.
	logOutput string
	// logDest is the file path or file descriptor where logs should go.
	logDest string
	// continueOnStart is whether to continue the process on startup
	continueOnStart bool
	// initFile is the path to initialization file.
	initFile string
	// workingDir is the working directory for running the program.
	workingDir string
	// tty is used to provide an alternate TTY for the program you wish to debug.
	tty string
	// disableASLR launches the program without address space randomization.
	disableASLR bool
	// env holds KEY=VALUE pairs added to the environment of the program.
	env []string

	// rootCommand is the root of the command tree.
	rootCommand *cobra.Command

	conf *config.Config
)

const fdbCommandLongDesc = `fdb is a machine level debugger for Linux x86-64 programs.

fdb launches or attaches to a process and lets you control its execution one
instruction at a time, set breakpoints at addresses and inspect or change its
registers and memory.

Pass flags to the program you are debugging using ` + "`--`" + `, for example:

` + "`fdb run ./hello -- server --config conf/config.toml`"

// New returns an initialized command tree.
func New() *cobra.Command {
	// Config setup and load.
	conf = config.LoadConfig()

	// Main fdb root command.
	rootCommand = &cobra.Command{
		Use:          "fdb",
		Short:        "fdb is a debugger for Linux x86-64 programs.",
		Long:         fdbCommandLongDesc,
		SilenceUsage: true,
	}

	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable debugger logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", `Comma separated list of components that should produce debug output (see 'fdb help log')`)
	rootCommand.PersistentFlags().StringVarP(&logDest, "log-dest", "", "", "Writes logs to the specified file or file descriptor (see 'fdb help log').")
	rootCommand.PersistentFlags().StringVar(&initFile, "init", "", "Init file, executed by the terminal client.")

	// 'run' subcommand.
	runCommand := &cobra.Command{
		Use:   "run <path/to/binary> [-- args]",
		Short: "Launch a binary and begin a debug session.",
		Long: `Launch a binary and begin a debug session.

The program is stopped before its first instruction runs. Set breakpoints
and use continue to start it.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("you must provide a path to a binary")
			}
			return nil
		},
		Run: runCmd,
	}
	runCommand.Flags().StringVar(&workingDir, "wd", "", "Working directory for running the program.")
	runCommand.Flags().StringVar(&tty, "tty", "", "TTY to use for the target program")
	runCommand.Flags().BoolVar(&disableASLR, "disable-aslr", false, "Disables address space randomization (default from the disable-aslr configuration).")
	runCommand.Flags().StringArrayVar(&env, "env", nil, "Adds KEY=VALUE to the environment of the program, may be repeated.")
	runCommand.Flags().BoolVar(&continueOnStart, "continue", false, "Continue the debugged process on start.")
	rootCommand.AddCommand(runCommand)

	// 'attach' subcommand.
	attachCommand := &cobra.Command{
		Use:   "attach pid",
		Short: "Attach to running process and begin debugging.",
		Long: `Attach to an already running process and begin debugging it.

When exiting the debug session the process is released and keeps running.
Use kill to terminate it instead.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("you must provide a PID")
			}
			return nil
		},
		Run: attachCmd,
	}
	attachCommand.Flags().BoolVar(&continueOnStart, "continue", false, "Continue the debugged process on start.")
	rootCommand.AddCommand(attachCommand)

	// 'version' subcommand.
	var versionVerbose bool
	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fdb debugger\n%s\n", version.FdbVersion)
			if versionVerbose {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s", version.BuildInfo())
			}
		},
	}
	versionCommand.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "print verbose version info")
	rootCommand.AddCommand(versionCommand)

	rootCommand.AddCommand(&cobra.Command{
		Use:   "log",
		Short: "Help about logging flags.",
		Long: `Logging can be enabled by specifying the --log flag and using the
--log-output flag to select which components should produce logs.

The argument of --log-output must be a comma separated list of component
names selected from this list:


	debugger	Log debugger commands
	proc		Log breakpoint and execution control
	ptrace		Log every ptrace request

Additionally --log-dest can be used to specify where the logs should be
written.
If the argument is a number it will be interpreted as a file descriptor,
otherwise as a file path.

`,
	})

	rootCommand.DisableAutoGenTag = true

	return rootCommand
}

func runCmd(cmd *cobra.Command, args []string) {
	dcfg, err := launchConfig(cmd.Flags(), conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(execute(dcfg, args, conf))
}

func attachCmd(cmd *cobra.Command, args []string) {
	pid, err := parsePid(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if msg := threadWarning(pid); msg != "" {
		fmt.Fprintln(os.Stderr, msg)
	}
	dcfg := &debugger.Config{AttachPid: pid, PassSignals: conf.PassSignals}
	os.Exit(execute(dcfg, nil, conf))
}

// threadWarning returns the warning printed before attaching to a process
// with more than one thread, only its main thread is traced.
func threadWarning(pid int) string {
	n, err := native.ThreadCount(pid)
	if err != nil || n <= 1 {
		return ""
	}
	return fmt.Sprintf("Warning: process %d has %d threads, only the main thread will be traced. A breakpoint hit by another thread terminates the process.", pid, n)
}

func parsePid(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errors.New("wrong number of arguments: attach <pid>")
	}
	pid, err := strconv.Atoi(args[0])
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid: %s", args[0])
	}
	return pid, nil
}

// launchConfig builds the debugger configuration of the run command. Flags
// set on the command line take precedence over the configuration file.
func launchConfig(flags *pflag.FlagSet, conf *config.Config) (*debugger.Config, error) {
	dcfg := &debugger.Config{
		WorkingDir:  workingDir,
		TTY:         tty,
		DisableASLR: conf.DisableASLR,
		PassSignals: conf.PassSignals,
	}
	if flags.Changed("disable-aslr") {
		dcfg.DisableASLR = disableASLR
	}
	if len(env) > 0 {
		e, err := mergeEnv(os.Environ(), env)
		if err != nil {
			return nil, err
		}
		dcfg.Env = e
	}
	return dcfg, nil
}

// mergeEnv adds the KEY=VALUE pairs in extra to base, replacing variables
// already defined in base.
func mergeEnv(base, extra []string) ([]string, error) {
	r := make([]string, 0, len(base)+len(extra))
	idx := make(map[string]int)
	add := func(kv string) {
		key := kv[:strings.Index(kv, "=")]
		if i, ok := idx[key]; ok {
			r[i] = kv
			return
		}
		idx[key] = len(r)
		r = append(r, kv)
	}
	for _, kv := range base {
		if strings.Index(kv, "=") > 0 {
			add(kv)
		}
	}
	for _, kv := range extra {
		if strings.Index(kv, "=") <= 0 {
			return nil, fmt.Errorf("invalid environment variable %q, expected KEY=VALUE", kv)
		}
		add(kv)
	}
	return r, nil
}

func execute(dcfg *debugger.Config, processArgs []string, conf *config.Config) int {
	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer logflags.Close()

	dbg, err := debugger.New(dcfg, processArgs)
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostic(err))
		return 1
	}

	term := terminal.New(dbg, conf)
	term.InitFile = initFile
	term.ContinueOnStart = continueOnStart
	status, err := term.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, diagnostic(err))
	}
	return status
}

// diagnostic returns the one line message printed for an error that ends
// the session.
func diagnostic(err error) string {
	var spawnErr *proc.SpawnError
	if errors.As(err, &spawnErr) {
		// The debugger adds its own prefix to launch failures.
		err = spawnErr
	}
	msg := strings.TrimSpace(err.Error())
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return "fdb: " + msg
}
