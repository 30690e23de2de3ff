// Package terminal implements functions for responding to user
// input and dispatching to appropriate backend commands.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cosiner/argv"
	"github.com/derekparker/trie"
	"golang.org/x/sys/unix"

	"github.com/fdbdbg/fdb/pkg/proc"
	"github.com/fdbdbg/fdb/service"
	"github.com/fdbdbg/fdb/service/api"
)

const (
	defaultDisassembleCount = 10
	maxDisassembleCount     = 1000
)

type cmdfunc func(t *Term, args []string) error

type command struct {
	aliases        []string
	builtinAliases []string
	group          commandGroup
	helpMsg        string
	cmdFn          cmdfunc
}

// Returns true if the command string matches one of the aliases for this command
func (c command) match(cmdstr string) bool {
	for _, v := range c.aliases {
		if v == cmdstr {
			return true
		}
	}
	return false
}

// Commands represents the commands for fdb terminal process.
type Commands struct {
	cmds   []command
	client service.Client
}

// ExitRequestError is returned when the user
// exits fdb.
type ExitRequestError struct{}

func (ere ExitRequestError) Error() string {
	return ""
}

// DebugCommands returns a Commands struct with default commands defined.
func DebugCommands(client service.Client) *Commands {
	c := &Commands{client: client}

	c.cmds = []command{
		{aliases: []string{"help", "h"}, cmdFn: c.help, helpMsg: `Prints the help message.

	help [command]

Type "help" followed by the name of a command for more information about it.`},
		{aliases: []string{"break", "b"}, group: breakCmds, cmdFn: breakpoint, helpMsg: `Sets a breakpoint.

	break <address>

The address is a number in Go syntax, for example 0x401000.`},
		{aliases: []string{"clear"}, group: breakCmds, cmdFn: clearCmd, helpMsg: `Deletes breakpoint.

	clear <address>`},
		{aliases: []string{"breakpoints", "bp"}, group: breakCmds, cmdFn: breakpoints, helpMsg: "Print out info for active breakpoints."},
		{aliases: []string{"toggle"}, group: breakCmds, cmdFn: toggle, helpMsg: `Toggles on or off a breakpoint.

	toggle <address>

A disabled breakpoint keeps its hit count but does not stop the program.`},
		{aliases: []string{"continue", "c"}, group: runCmds, cmdFn: cont, helpMsg: `Run until breakpoint or program termination.

	continue

The signal that stopped the program is delivered unless the debugger raised it.`},
		{aliases: []string{"step", "si"}, group: runCmds, cmdFn: execCommand(api.Step), helpMsg: "Single step a single cpu instruction."},
		{aliases: []string{"next", "ni"}, group: runCmds, cmdFn: execCommand(api.Next), helpMsg: `Step over to the next instruction.

Like step, but a call instruction runs until the called function returns.`},
		{aliases: []string{"stepover"}, group: runCmds, cmdFn: execCommand(api.StepOverBreakpoint), helpMsg: `Executes the instruction under the current breakpoint.

Fails if the program is not stopped at an enabled breakpoint.`},
		{aliases: []string{"signal"}, group: runCmds, cmdFn: signalCmd, helpMsg: `Continue delivering a signal.

	signal <signal>

The signal is a number or a name like SIGUSR1. Signal 0 continues without
delivering the pending signal.`},
		{aliases: []string{"regs"}, group: dataCmds, cmdFn: regs, helpMsg: `Print contents of CPU registers.

	regs [-a]

Argument -a shows more registers.`},
		{aliases: []string{"set"}, group: dataCmds, cmdFn: setRegister, helpMsg: `Changes the value of a register.

	set <register> <value>

Example:

	set rip 0x401000`},
		{aliases: []string{"mem"}, group: dataCmds, cmdFn: memCmd, helpMsg: `Read or write memory.

	mem read <address> [length]
	mem write <address> <byte> [<byte> ...]

Bytes are written in hexadecimal, for example: mem write 0x4c8000 de ad be ef.
Addresses of enabled breakpoints read as the trap instruction.`},
		{aliases: []string{"examinemem", "x"}, group: dataCmds, cmdFn: examineMemoryCmd, helpMsg: `Examine raw memory at the given address.

	examinemem [-fmt <format>] [-count|-len <count>] [-size <size>] <address>

Format represents the data format and the value is one of this list (default hex): bin(binary), oct(octal), dec(decimal), hex(hexadecimal).
Length is the number of bytes (default 1) and must be less than or equal to the max-examine-bytes configuration.
Size is the size of each unit, one of 1, 2, 4 or 8.`},
		{aliases: []string{"disassemble", "disass"}, group: dataCmds, cmdFn: disassembleCmd, helpMsg: `Disassembler.

	disassemble [address] [count]

Without address disassembles at the current instruction pointer. The
syntax is selected by the disassemble-flavor configuration.`},
		{aliases: []string{"detach"}, cmdFn: detachCmd, helpMsg: `Removes every breakpoint and lets the program run without the debugger.`},
		{aliases: []string{"kill"}, cmdFn: killCmd, helpMsg: `Kills the program and exits.`},
		{aliases: []string{"source"}, cmdFn: c.sourceCommand, helpMsg: `Executes a file containing a list of fdb commands.

	source <path>`},
		{aliases: []string{"exit", "quit", "q"}, cmdFn: exitCommand, helpMsg: `Exit the debugger.

A program launched by the debugger is killed, an attached one is released.`},
	}

	sort.Sort(byFirstAlias(c.cmds))
	return c
}

// byFirstAlias will sort by the first
// alias of a command.
type byFirstAlias []command

func (a byFirstAlias) Len() int           { return len(a) }
func (a byFirstAlias) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byFirstAlias) Less(i, j int) bool { return a[i].aliases[0] < a[j].aliases[0] }

// Register custom commands. Expects cf to be a func of type cmdfunc,
// returning only an error.
func (c *Commands) Register(cmdstr string, cf cmdfunc, helpMsg string) {
	for i := range c.cmds {
		if c.cmds[i].match(cmdstr) {
			c.cmds[i].cmdFn = cf
			return
		}
	}

	c.cmds = append(c.cmds, command{aliases: []string{cmdstr}, cmdFn: cf, helpMsg: helpMsg})
}

// Find will look up the command function for the given command input.
// If it cannot find the command it will default to noCmdAvailable().
// If the command is an empty string it will do nothing.
func (c *Commands) Find(cmdstr string) cmdfunc {
	if cmdstr == "" {
		return nullCommand
	}

	for _, v := range c.cmds {
		if v.match(cmdstr) {
			return v.cmdFn
		}
	}

	return noCmdAvailable
}

// Call takes a command to execute.
func (c *Commands) Call(cmdstr string, t *Term) error {
	args, err := splitArgs(cmdstr)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	return c.Find(args[0])(t, args[1:])
}

// splitArgs splits a command line with shell quoting rules.
func splitArgs(cmdstr string) ([]string, error) {
	cmdstr = strings.TrimSpace(cmdstr)
	if cmdstr == "" {
		return nil, nil
	}
	v, err := argv.Argv(cmdstr,
		func(s string) (string, error) {
			return "", fmt.Errorf("backtick not supported in '%s'", s)
		},
		nil)
	if err != nil {
		return nil, err
	}
	if len(v) != 1 {
		return nil, fmt.Errorf("illegal command line '%s'", cmdstr)
	}
	return v[0], nil
}

// Merge takes aliases defined in the config struct and merges them with the default aliases.
func (c *Commands) Merge(allAliases map[string][]string) {
	for i := range c.cmds {
		if c.cmds[i].builtinAliases != nil {
			c.cmds[i].aliases = append(c.cmds[i].aliases[:0], c.cmds[i].builtinAliases...)
		}
	}
	for i := range c.cmds {
		if aliases, ok := allAliases[c.cmds[i].aliases[0]]; ok {
			if c.cmds[i].builtinAliases == nil {
				c.cmds[i].builtinAliases = make([]string, len(c.cmds[i].aliases))
				copy(c.cmds[i].builtinAliases, c.cmds[i].aliases)
			}
			c.cmds[i].aliases = append(c.cmds[i].aliases, aliases...)
		}
	}
}

// completionTrie returns a trie of every command alias.
func (c *Commands) completionTrie() *trie.Trie {
	tr := trie.New()
	for _, cmd := range c.cmds {
		for _, alias := range cmd.aliases {
			tr.Add(alias, cmd.aliases[0])
		}
	}
	return tr
}

var errNoCmd = errors.New("command not available")

func noCmdAvailable(t *Term, args []string) error {
	return errNoCmd
}

func nullCommand(t *Term, args []string) error {
	return nil
}

func (c *Commands) help(t *Term, args []string) error {
	if len(args) > 0 {
		for _, cmd := range c.cmds {
			if cmd.match(args[0]) {
				fmt.Fprintln(t.stdout, cmd.helpMsg)
				return nil
			}
		}
		return errNoCmd
	}

	fmt.Fprintln(t.stdout, "The following commands are available:")

	for _, cgd := range commandGroupDescriptions {
		fmt.Fprintf(t.stdout, "\n%s:\n", cgd.description)
		w := new(tabwriter.Writer)
		w.Init(t.stdout, 0, 8, 0, '-', 0)
		for _, cmd := range c.cmds {
			if cmd.group != cgd.group {
				continue
			}
			h := cmd.helpMsg
			if idx := strings.Index(h, "\n"); idx >= 0 {
				h = h[:idx]
			}
			if len(cmd.aliases) > 1 {
				fmt.Fprintf(w, "    %s (alias: %s) \t %s\n", cmd.aliases[0], strings.Join(cmd.aliases[1:], " | "), h)
			} else {
				fmt.Fprintf(w, "    %s \t %s\n", cmd.aliases[0], h)
			}
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Fprintln(t.stdout)
	fmt.Fprintln(t.stdout, "Type help followed by a command for full documentation.")
	return nil
}

func (c *Commands) sourceCommand(t *Term, args []string) error {
	if len(args) != 1 {
		return errors.New("wrong number of arguments: source <filename>")
	}
	return c.executeFile(t, args[0])
}

// executeFile runs every line of the file name as a command. Empty lines
// and lines starting with # are skipped.
func (c *Commands) executeFile(t *Term, name string) error {
	fh, err := os.Open(name)
	if err != nil {
		return err
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	lineno := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineno++

		if line == "" || line[0] == '#' {
			continue
		}

		if err := c.Call(line, t); err != nil {
			if errors.As(err, &ExitRequestError{}) {
				return err
			}
			fmt.Fprintf(t.stderr, "%s:%d: %v\n", name, lineno, err)
		}
	}

	return scanner.Err()
}

func exitCommand(t *Term, args []string) error {
	return ExitRequestError{}
}

func detachCmd(t *Term, args []string) error {
	if err := t.client.Detach(false); err != nil {
		return err
	}
	fmt.Fprintf(t.stdout, "Detached from process %d\n", t.client.ProcessPid())
	return ExitRequestError{}
}

func killCmd(t *Term, args []string) error {
	if err := t.client.Detach(true); err != nil {
		return err
	}
	fmt.Fprintf(t.stdout, "Process %d killed\n", t.client.ProcessPid())
	return ExitRequestError{}
}

// parseAddress parses a number in Go syntax, a leading * is allowed.
func parseAddress(s string) (uint64, error) {
	addr, err := strconv.ParseUint(strings.TrimPrefix(s, "*"), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", s)
	}
	return addr, nil
}

func oneAddress(args []string, usage string) (uint64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("wrong number of arguments: %s", usage)
	}
	return parseAddress(args[0])
}

func breakpoint(t *Term, args []string) error {
	addr, err := oneAddress(args, "break <address>")
	if err != nil {
		return err
	}
	if _, err := t.client.Command(context.Background(), &api.DebuggerCommand{Name: api.SetBreakpoint, Addr: addr}); err != nil {
		return err
	}
	bp := t.client.FindBreakpoint(addr)
	fmt.Fprintf(t.stdout, "Breakpoint %d set at %#x\n", bp.ID, bp.Addr)
	return nil
}

func clearCmd(t *Term, args []string) error {
	addr, err := oneAddress(args, "clear <address>")
	if err != nil {
		return err
	}
	bp := t.client.FindBreakpoint(addr)
	if _, err := t.client.Command(context.Background(), &api.DebuggerCommand{Name: api.ClearBreakpoint, Addr: addr}); err != nil {
		return err
	}
	if bp != nil {
		fmt.Fprintf(t.stdout, "Breakpoint %d cleared at %#x\n", bp.ID, bp.Addr)
	}
	return nil
}

func breakpoints(t *Term, args []string) error {
	bps := t.client.Breakpoints()
	if len(bps) == 0 {
		fmt.Fprintln(t.stdout, "No breakpoints.")
		return nil
	}
	for _, bp := range bps {
		fmt.Fprintln(t.stdout, bp)
	}
	return nil
}

func toggle(t *Term, args []string) error {
	addr, err := oneAddress(args, "toggle <address>")
	if err != nil {
		return err
	}
	bp := t.client.FindBreakpoint(addr)
	if bp == nil {
		return fmt.Errorf("no breakpoint at %#x", addr)
	}
	name, what := api.DisableBreakpoint, "disabled"
	if !bp.Enabled {
		name, what = api.EnableBreakpoint, "enabled"
	}
	if _, err := t.client.Command(context.Background(), &api.DebuggerCommand{Name: name, Addr: addr}); err != nil {
		return err
	}
	fmt.Fprintf(t.stdout, "Breakpoint %d at %#x %s\n", bp.ID, addr, what)
	return nil
}

func cont(t *Term, args []string) error {
	return runCommand(t, &api.DebuggerCommand{Name: api.Continue})
}

func execCommand(name string) cmdfunc {
	return func(t *Term, args []string) error {
		return runCommand(t, &api.DebuggerCommand{Name: name})
	}
}

func signalCmd(t *Term, args []string) error {
	if len(args) != 1 {
		return errors.New("wrong number of arguments: signal <signal>")
	}
	sig, err := parseSignal(args[0])
	if err != nil {
		return err
	}
	return runCommand(t, &api.DebuggerCommand{Name: api.Signal, Signal: sig})
}

// parseSignal accepts a signal number or a name with or without the SIG
// prefix.
func parseSignal(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 64 {
			return 0, fmt.Errorf("invalid signal %d", n)
		}
		return n, nil
	}
	name := strings.ToUpper(s)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	if sig := unix.SignalNum(name); sig != 0 {
		return int(sig), nil
	}
	return 0, fmt.Errorf("unknown signal %q", s)
}

// runCommand executes an execution command and prints where the target
// stopped.
func runCommand(t *Term, cmd *api.DebuggerCommand) error {
	state, err := t.client.Command(context.Background(), cmd)
	if state != nil {
		printStop(t, state)
	}
	return err
}

func printStop(t *Term, state *api.DebuggerState) {
	sr := state.StopReason
	switch sr.Kind {
	case "exited":
		fmt.Fprintf(t.stdout, "Process %d has exited with status %d\n", state.Pid, sr.ExitCode)
		return
	case "terminated":
		fmt.Fprintf(t.stdout, "Process %d was terminated by signal %d (%s)\n", state.Pid, sr.Signal, api.SignalName(sr.Signal))
		return
	case "error":
		fmt.Fprintf(t.stdout, "Process %d: %s\n", state.Pid, sr)
		if state.State != "stopped" {
			return
		}
	case "breakpoint hit":
		bpID := 0
		for _, bp := range state.Breakpoints {
			if bp.Addr == sr.Addr {
				bpID = bp.ID
			}
		}
		fmt.Fprintf(t.stdout, "> Breakpoint %d hit at %#x\n", bpID, sr.Addr)
	case "signaled":
		fmt.Fprintf(t.stdout, "> %s\n", sr)
	}
	if state.State != "stopped" {
		return
	}
	insts, err := t.client.Disassemble(state.PC, 1, t.flavour())
	if err != nil || len(insts) == 0 {
		fmt.Fprintf(t.stdout, "> %#x\n", state.PC)
		return
	}
	fmt.Fprintf(t.stdout, "> %#x: %s\n", insts[0].Loc, insts[0].Text)
}

func (t *Term) flavour() proc.AssemblyFlavour {
	flavour, err := proc.ParseAssemblyFlavour(t.conf.DisassembleFlavor)
	if err != nil {
		return proc.IntelFlavour
	}
	return flavour
}

func regs(t *Term, args []string) error {
	all := false
	switch {
	case len(args) == 0:
	case len(args) == 1 && args[0] == "-a":
		all = true
	default:
		return errors.New("wrong arguments: regs [-a]")
	}
	regs, err := t.client.Registers(all)
	if err != nil {
		return err
	}
	for _, reg := range regs {
		fmt.Fprintf(t.stdout, "%8s = %#016x\n", reg.Name, reg.Value)
	}
	return nil
}

func setRegister(t *Term, args []string) error {
	if len(args) != 2 {
		return errors.New("wrong number of arguments: set <register> <value>")
	}
	value, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		v, serr := strconv.ParseInt(args[1], 0, 64)
		if serr != nil {
			return fmt.Errorf("invalid value %q", args[1])
		}
		value = uint64(v)
	}
	return t.client.SetRegister(args[0], value)
}

func memCmd(t *Term, args []string) error {
	if len(args) < 2 {
		return errors.New("wrong number of arguments: mem read <address> [length] | mem write <address> <bytes...>")
	}
	addr, err := parseAddress(args[1])
	if err != nil {
		return err
	}
	switch args[0] {
	case "read":
		n := 16
		if len(args) > 2 {
			n, err = strconv.Atoi(args[2])
			if err != nil || n <= 0 {
				return fmt.Errorf("length must be a positive integer")
			}
		}
		if max := t.conf.MaxExamine(); n > max {
			return fmt.Errorf("read memory range must be less than or equal to %d bytes", max)
		}
		mem, err := t.client.ReadMemory(addr, n)
		if err != nil {
			return err
		}
		fmt.Fprint(t.stdout, prettyExamineMemory(addr, mem, 'x', 1))
		return nil
	case "write":
		data, err := parseHexBytes(args[2:])
		if err != nil {
			return err
		}
		return t.client.WriteMemory(addr, data)
	}
	return fmt.Errorf("unknown mem subcommand %q", args[0])
}

// parseHexBytes parses each argument as a hexadecimal byte, with or
// without a 0x prefix.
func parseHexBytes(args []string) ([]byte, error) {
	if len(args) == 0 {
		return nil, errors.New("no bytes to write")
	}
	data := make([]byte, 0, len(args))
	for _, arg := range args {
		s := strings.TrimPrefix(strings.ToLower(arg), "0x")
		b, err := strconv.ParseUint(s, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid byte %q", arg)
		}
		data = append(data, byte(b))
	}
	return data, nil
}

func examineMemoryCmd(t *Term, args []string) error {
	var (
		address uint64
		err     error
		ok      bool
	)

	// Default value
	priFmt := byte('x')
	count := 1
	size := 1
	haveAddr := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-fmt":
			i++
			if i >= len(args) {
				return fmt.Errorf("expected argument after -fmt")
			}
			fmtMapToPriFmt := map[string]byte{
				"oct":         'o',
				"octal":       'o',
				"hex":         'x',
				"hexadecimal": 'x',
				"dec":         'd',
				"decimal":     'd',
				"bin":         'b',
				"binary":      'b',
			}
			priFmt, ok = fmtMapToPriFmt[args[i]]
			if !ok {
				return fmt.Errorf("%q is not a valid format", args[i])
			}
		case "-count", "-len":
			i++
			if i >= len(args) {
				return fmt.Errorf("expected argument after -count/-len")
			}
			count, err = strconv.Atoi(args[i])
			if err != nil || count <= 0 {
				return fmt.Errorf("count/len must be a positive integer")
			}
		case "-size":
			i++
			if i >= len(args) {
				return fmt.Errorf("expected argument after -size")
			}
			size, err = strconv.Atoi(args[i])
			if err != nil || (size != 1 && size != 2 && size != 4 && size != 8) {
				return fmt.Errorf("size must be one of 1, 2, 4 or 8")
			}
		default:
			if i != len(args)-1 {
				return fmt.Errorf("unknown option %q", args[i])
			}
			address, err = parseAddress(args[i])
			if err != nil {
				return err
			}
			haveAddr = true
		}
	}

	if max := t.conf.MaxExamine(); count > max/size {
		return fmt.Errorf("read memory range (count*size) must be less than or equal to %d bytes", max)
	}

	if !haveAddr {
		return fmt.Errorf("no address specified")
	}

	memArea, err := t.client.ReadMemory(address, count*size)
	if err != nil {
		return err
	}
	fmt.Fprint(t.stdout, prettyExamineMemory(address, memArea, priFmt, size))
	return nil
}

func disassembleCmd(t *Term, args []string) error {
	var (
		addr  uint64
		count = defaultDisassembleCount
		err   error
	)
	if len(args) > 2 {
		return errors.New("wrong number of arguments: disassemble [address] [count]")
	}
	if len(args) > 0 {
		if addr, err = parseAddress(args[0]); err != nil {
			return err
		}
	}
	if len(args) > 1 {
		count, err = strconv.Atoi(args[1])
		if err != nil || count <= 0 {
			return fmt.Errorf("count must be a positive integer")
		}
		if count > maxDisassembleCount {
			return fmt.Errorf("count must be less than or equal to %d", maxDisassembleCount)
		}
	}
	insts, err := t.client.Disassemble(addr, count, t.flavour())
	if err != nil {
		return err
	}
	disasmPrint(insts, t.stdout)
	return nil
}
