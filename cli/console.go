package cli

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nathoo/mobcore/engine"
	"github.com/nathoo/mobcore/engine/fsm"
	"github.com/nathoo/mobcore/engine/mob"
	"github.com/nathoo/mobcore/engine/script"
	"github.com/nathoo/mobcore/engine/snapshot"
	"github.com/nathoo/mobcore/logger"
	"github.com/nathoo/mobcore/types"
)

// maxTicksPerCommand bounds a single tick or run command.
const maxTicksPerCommand = 100000

// Console executes simulation commands against an engine. The line console
// and the inspector both drive the engine through it.
type Console struct {
	Engine      *engine.Engine
	SnapshotDir string
	Trace       bool
}

// NewConsole creates a console whose snapshots go to ~/.mobcore/snapshots.
func NewConsole(eng *engine.Engine) *Console {
	home, _ := os.UserHomeDir()
	return &Console{
		Engine:      eng,
		SnapshotDir: filepath.Join(home, ".mobcore", "snapshots"),
	}
}

type command struct {
	usage string
	help  string
	run   func(c *Console, args []string) ([]string, error)
}

var commands = map[string]*command{}

func init() {
	for _, def := range []struct {
		names []string
		cmd   *command
	}{
		{[]string{"tick", "t"}, &command{"tick [frames]", "Advance the simulation", (*Console).cmdTick}},
		{[]string{"run"}, &command{"run <seconds>", "Advance by simulated seconds", (*Console).cmdRun}},
		{[]string{"mobs", "ls"}, &command{"mobs", "List live mobs", (*Console).cmdMobs}},
		{[]string{"inspect", "x"}, &command{"inspect <id>", "Show one mob in detail", (*Console).cmdInspect}},
		{[]string{"spawn"}, &command{"spawn <type> <x> <y> [angle]", "Spawn a mob", (*Console).cmdSpawn}},
		{[]string{"attack"}, &command{"attack <attacker|0> <victim> <damage>", "Land a hit", (*Console).cmdAttack}},
		{[]string{"whistle"}, &command{"whistle <leader> <x> <y> <radius> | whistle off", "Set the whistle input", (*Console).cmdWhistle}},
		{[]string{"swarm"}, &command{"swarm <leader> <angle> <magnitude>", "Swarm a group (magnitude 0 stops)", (*Console).cmdSwarm}},
		{[]string{"message", "msg"}, &command{"message <id> <text>", "Send a message to a mob", (*Console).cmdMessage}},
		{[]string{"spray"}, &command{"spray <id> <status>", "Spray a mob", (*Console).cmdSpray}},
		{[]string{"hazard"}, &command{"hazard <id> <status>", "Put a mob in a hazard", (*Console).cmdHazard}},
		{[]string{"leave"}, &command{"leave <id>", "Take a mob out of its hazard", (*Console).cmdLeave}},
		{[]string{"pit"}, &command{"pit <id>", "Drop a mob down a pit", (*Console).cmdPit}},
		{[]string{"history"}, &command{"history", "Print every mob's state history", (*Console).cmdHistory}},
	} {
		for _, n := range def.names {
			commands[n] = def.cmd
		}
	}
}

// Exec runs one input line and returns the output lines. quit is true when
// the line asks to leave.
func (c *Console) Exec(line string) (out []string, quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}
	if strings.HasPrefix(line, "/") {
		return c.handleMeta(line)
	}

	parts := strings.Fields(line)
	cmd, ok := commands[strings.ToLower(parts[0])]
	if !ok {
		return []string{fmt.Sprintf("Unknown command %q. Type /help for available commands.", parts[0])}, false
	}
	out, err := cmd.run(c, parts[1:])
	if err != nil {
		return []string{"Error: " + err.Error()}, false
	}
	return out, false
}

// handleMeta dispatches meta-commands.
func (c *Console) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{system("Goodbye.")}, true

	case "/snapshot":
		return []string{system(c.cmdSnapshot(arg))}, false

	case "/help":
		return c.Help(), false

	case "/state":
		return c.cmdState(), false

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			return []string{system("Trace output enabled.")}, false
		}
		return []string{system("Trace output disabled.")}, false

	default:
		return []string{system(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))}, false
	}
}

// Help lists every command.
func (c *Console) Help() []string {
	lines := []string{
		"System:",
		"  /snapshot [name]  Write a JSON snapshot (default: latest)",
		"  /state            Frame, mob count and RNG position",
		"  /trace            Toggle per-event trace output",
		"  /help             Show this help",
		"  /quit             Exit",
		"",
		"Simulation:",
	}
	seen := map[*command]bool{}
	var cmds []*command
	for _, cmd := range commands {
		if !seen[cmd] {
			seen[cmd] = true
			cmds = append(cmds, cmd)
		}
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].usage < cmds[j].usage })
	for _, cmd := range cmds {
		lines = append(lines, fmt.Sprintf("  %-48s %s", cmd.usage, cmd.help))
	}
	lines = append(lines, "  again (g)                                        Repeat the last command")
	return lines
}

func (c *Console) cmdSnapshot(name string) string {
	if name == "" {
		name = "latest"
	}
	data, err := snapshot.Save(c.Engine)
	if err != nil {
		return fmt.Sprintf("Snapshot failed: %v", err)
	}
	if err := os.MkdirAll(c.SnapshotDir, 0o755); err != nil {
		return fmt.Sprintf("Snapshot failed: %v", err)
	}
	path := filepath.Join(c.SnapshotDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Sprintf("Snapshot failed: %v", err)
	}
	logger.Log.WithFields(logrus.Fields{"path": path, "frame": c.Engine.Session.Frame}).Info("snapshot written")
	return fmt.Sprintf("Snapshot written to %s.", name)
}

func (c *Console) cmdState() []string {
	e := c.Engine
	return []string{
		system(fmt.Sprintf("Frame: %d", e.Session.Frame)),
		system(fmt.Sprintf("Mobs: %d", len(e.Session.Mobs()))),
		system(fmt.Sprintf("RNG: seed %d, position %d", e.RNG.Seed(), e.RNG.Position())),
	}
}

// Tick advances n frames and reports what happened.
func (c *Console) Tick(n int) []string {
	dt := c.Engine.Config.DeltaT()
	var (
		out     []string
		events  int
		deleted []int
	)
	for i := 0; i < n; i++ {
		res := c.Engine.Tick(dt)
		events += len(res.Events)
		deleted = append(deleted, res.Deleted...)
		if c.Trace {
			out = append(out, FormatTrace(res)...)
		}
	}
	summary := fmt.Sprintf("Frame %d: %d event(s)", c.Engine.Session.Frame, events)
	if len(deleted) > 0 {
		summary += fmt.Sprintf(", deleted %v", deleted)
	}
	return append(out, summary)
}

// FormatTrace renders one line per event a frame ran.
func FormatTrace(res types.TickResult) []string {
	lines := make([]string, 0, len(res.Events))
	for _, ev := range res.Events {
		lines = append(lines, fmt.Sprintf("[trace] frame %d #%d %s: %s",
			ev.Frame, ev.Mob, ev.State, script.EventName(ev.Type)))
	}
	return lines
}

func (c *Console) cmdTick(args []string) ([]string, error) {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return nil, fmt.Errorf("frames must be a positive integer, got %q", args[0])
		}
		n = v
	}
	if n > maxTicksPerCommand {
		return nil, fmt.Errorf("at most %d frames per command", maxTicksPerCommand)
	}
	return c.Tick(n), nil
}

func (c *Console) cmdRun(args []string) ([]string, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: run <seconds>")
	}
	secs, err := strconv.ParseFloat(args[0], 64)
	if err != nil || secs <= 0 {
		return nil, fmt.Errorf("seconds must be a positive number, got %q", args[0])
	}
	n := int(math.Round(secs * c.Engine.Config.TickRate))
	if n < 1 {
		n = 1
	}
	if n > maxTicksPerCommand {
		return nil, fmt.Errorf("at most %d frames per command", maxTicksPerCommand)
	}
	return c.Tick(n), nil
}

func (c *Console) cmdMobs(_ []string) ([]string, error) {
	mobs := c.Engine.Session.Mobs()
	if len(mobs) == 0 {
		return []string{"No mobs."}, nil
	}
	out := make([]string, 0, len(mobs))
	for _, m := range mobs {
		out = append(out, MobLine(m))
	}
	return out, nil
}

// MobLine is the one-line summary of a mob.
func MobLine(m *mob.Mob) string {
	return fmt.Sprintf("#%-4d %-12s %-12s (%.1f, %.1f) hp %.0f/%.0f",
		m.ID, m.Type.Name, m.StateName(), m.Pos.X, m.Pos.Y, m.Health, m.MaxHealth)
}

func (c *Console) cmdInspect(args []string) ([]string, error) {
	m, err := c.mobArg(args, 0)
	if err != nil {
		return nil, err
	}
	out := []string{
		MobLine(m),
		fmt.Sprintf("  angle %.1f deg, z %.1f, alive %.2fs", m.Angle/math.Pi*180, m.Z, m.TimeAlive),
		fmt.Sprintf("  history: %s", fsm.History(m)),
	}
	if len(m.Vars) > 0 {
		keys := make([]string, 0, len(m.Vars))
		for k := range m.Vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + "=" + m.Vars[k]
		}
		out = append(out, "  vars: "+strings.Join(pairs, " "))
	}
	for _, st := range m.Statuses {
		if !st.ToDelete {
			out = append(out, fmt.Sprintf("  status %s (%.1fs left)", st.Type.Name, st.TimeLeft))
		}
	}
	if m.FocusID != 0 {
		out = append(out, fmt.Sprintf("  focus #%d", m.FocusID))
	}
	if len(m.Links) > 0 {
		out = append(out, fmt.Sprintf("  links %v", m.Links))
	}
	if m.Group != nil {
		out = append(out, fmt.Sprintf("  leads %d member(s)", len(m.Group.Members)))
	}
	if m.LeaderID != 0 {
		out = append(out, fmt.Sprintf("  follows #%d at spot %d", m.LeaderID, m.GroupSpot))
	}
	if m.Carry != nil {
		out = append(out, fmt.Sprintf("  carried by %d of %d spot(s)", len(m.Carry.Spots)-freeSpots(m.Carry), len(m.Carry.Spots)))
	}
	if m.CarryingID != 0 {
		out = append(out, fmt.Sprintf("  carrying #%d", m.CarryingID))
	}
	if m.IsChasing() {
		if t := m.Chase.Target; t.MobID != 0 {
			out = append(out, fmt.Sprintf("  chasing #%d", t.MobID))
		} else {
			out = append(out, fmt.Sprintf("  chasing (%.1f, %.1f)", t.Point.X, t.Point.Y))
		}
	}
	return out, nil
}

func freeSpots(ci *mob.CarryInfo) int {
	n := 0
	for _, sp := range ci.Spots {
		if sp.State == mob.SpotFree {
			n++
		}
	}
	return n
}

func (c *Console) cmdSpawn(args []string) ([]string, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("usage: spawn <type> <x> <y> [angle]")
	}
	nums, err := floats(args[1:])
	if err != nil {
		return nil, err
	}
	angle := 0.0
	if len(nums) > 2 {
		angle = nums[2] * math.Pi / 180
	}
	m, err := c.Engine.Session.Spawn(args[0], types.Point{X: nums[0], Y: nums[1]}, angle)
	if err != nil {
		return nil, err
	}
	return []string{"Spawned " + MobLine(m)}, nil
}

func (c *Console) cmdAttack(args []string) ([]string, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("usage: attack <attacker|0> <victim> <damage>")
	}
	var attacker *mob.Mob
	if args[0] != "0" {
		a, err := c.mobArg(args, 0)
		if err != nil {
			return nil, err
		}
		attacker = a
	}
	victim, err := c.mobArg(args, 1)
	if err != nil {
		return nil, err
	}
	dmg, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return nil, fmt.Errorf("damage must be a number, got %q", args[2])
	}
	c.Engine.Attack(attacker, victim, dmg)
	return []string{fmt.Sprintf("#%d is hit for %g.", victim.ID, dmg)}, nil
}

func (c *Console) cmdWhistle(args []string) ([]string, error) {
	if len(args) == 1 && args[0] == "off" {
		c.Engine.Whistle(nil, types.Point{}, 0, false)
		return []string{"Whistle off."}, nil
	}
	if len(args) < 4 {
		return nil, fmt.Errorf("usage: whistle <leader> <x> <y> <radius> | whistle off")
	}
	leader, err := c.mobArg(args, 0)
	if err != nil {
		return nil, err
	}
	nums, err := floats(args[1:4])
	if err != nil {
		return nil, err
	}
	c.Engine.Whistle(leader, types.Point{X: nums[0], Y: nums[1]}, nums[2], true)
	return []string{fmt.Sprintf("Whistling at (%.1f, %.1f) radius %.1f.", nums[0], nums[1], nums[2])}, nil
}

func (c *Console) cmdSwarm(args []string) ([]string, error) {
	if len(args) < 3 {
		return nil, fmt.Errorf("usage: swarm <leader> <angle> <magnitude>")
	}
	leader, err := c.mobArg(args, 0)
	if err != nil {
		return nil, err
	}
	nums, err := floats(args[1:3])
	if err != nil {
		return nil, err
	}
	if err := c.Engine.Swarm(leader, nums[0]*math.Pi/180, nums[1]); err != nil {
		return nil, err
	}
	if nums[1] == 0 {
		return []string{"Swarm stopped."}, nil
	}
	return []string{fmt.Sprintf("Group of #%d swarming.", leader.ID)}, nil
}

func (c *Console) cmdMessage(args []string) ([]string, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: message <id> <text>")
	}
	to, err := c.mobArg(args, 0)
	if err != nil {
		return nil, err
	}
	msg := strings.Join(args[1:], " ")
	c.Engine.Message(nil, to, msg)
	return []string{fmt.Sprintf("Sent %q to #%d.", msg, to.ID)}, nil
}

func (c *Console) cmdSpray(args []string) ([]string, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: spray <id> <status>")
	}
	m, err := c.mobArg(args, 0)
	if err != nil {
		return nil, err
	}
	if err := c.Engine.Spray(m, args[1]); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("Sprayed #%d with %s.", m.ID, args[1])}, nil
}

func (c *Console) cmdHazard(args []string) ([]string, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: hazard <id> <status>")
	}
	m, err := c.mobArg(args, 0)
	if err != nil {
		return nil, err
	}
	if err := c.Engine.EnterHazard(m, args[1]); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("#%d entered a %s hazard.", m.ID, args[1])}, nil
}

func (c *Console) cmdLeave(args []string) ([]string, error) {
	m, err := c.mobArg(args, 0)
	if err != nil {
		return nil, err
	}
	c.Engine.LeaveHazard(m)
	return []string{fmt.Sprintf("#%d left its hazard.", m.ID)}, nil
}

func (c *Console) cmdPit(args []string) ([]string, error) {
	m, err := c.mobArg(args, 0)
	if err != nil {
		return nil, err
	}
	c.Engine.Pit(m)
	return []string{fmt.Sprintf("#%d fell down a pit.", m.ID)}, nil
}

func (c *Console) cmdHistory(_ []string) ([]string, error) {
	h := c.Engine.History()
	if len(h) == 0 {
		return []string{"No mobs."}, nil
	}
	return h, nil
}

// mobArg resolves args[i] as the id of a live mob.
func (c *Console) mobArg(args []string, i int) (*mob.Mob, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("missing mob id")
	}
	id, err := strconv.Atoi(strings.TrimPrefix(args[i], "#"))
	if err != nil {
		return nil, fmt.Errorf("bad mob id %q", args[i])
	}
	m := c.Engine.Session.Live(id)
	if m == nil {
		return nil, fmt.Errorf("no live mob #%d", id)
	}
	return m, nil
}

func floats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", a)
		}
		out[i] = v
	}
	return out, nil
}

func system(text string) string {
	return "[" + text + "]"
}
