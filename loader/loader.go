package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nathoo/mobcore/logger"
	"github.com/nathoo/mobcore/types"
	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"
)

// rawDef holds a named constructor table before compilation.
type rawDef struct {
	id    string
	table *lua.LTable
	order int
}

// collector accumulates Lua definitions during file execution.
type collector struct {
	game     *lua.LTable
	mobTypes []rawDef
	statuses []rawDef
	stops    []rawDef
	places   []rawDef
	order    int
}

func (c *collector) nextSourceOrder() int {
	c.order++
	return c.order
}

// Load reads all .lua files from dir, compiles them into content
// definitions, validates references, and returns the immutable Defs. The
// Lua VM is discarded after loading.
func Load(dir string) (*types.Defs, error) {
	// Discover .lua files.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading content directory %s: %w", dir, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".lua") {
			luaFiles = append(luaFiles, e.Name())
		}
	}
	if len(luaFiles) == 0 {
		return nil, fmt.Errorf("no .lua files found in %s", dir)
	}

	// Sort: game.lua first, rest alphabetical.
	luaFiles = sortedLuaFiles(luaFiles)

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSafeLibs(L)
	sandbox(L)

	coll := &collector{}
	registerAPI(L, coll)

	for _, f := range luaFiles {
		path := filepath.Join(dir, f)
		if err := L.DoFile(path); err != nil {
			return nil, fmt.Errorf("executing %s: %w", f, err)
		}
	}

	defs, err := compile(coll)
	if err != nil {
		return nil, fmt.Errorf("compiling content: %w", err)
	}

	if err := validate(defs); err != nil {
		return nil, err
	}

	for _, w := range defs.Warnings {
		logger.Log.WithFields(logrus.Fields{"dir": dir}).Warn(w)
	}
	logger.Log.WithFields(logrus.Fields{
		"dir":       dir,
		"files":     len(luaFiles),
		"mob_types": len(defs.MobTypes),
		"statuses":  len(defs.Statuses),
		"stops":     len(defs.PathStops),
		"placed":    len(defs.Placements),
	}).Info("content loaded")

	return defs, nil
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
}

// sandbox removes dangerous globals and functions.
func sandbox(L *lua.LState) {
	dangerous := []string{
		"dofile", "loadfile", "load", "loadstring",
		"rawset", "rawget", "rawequal",
		"collectgarbage",
	}
	for _, name := range dangerous {
		L.SetGlobal(name, lua.LNil)
	}

	// Content must not reseed; simulations are replayed from the config seed.
	if mathTbl := L.GetGlobal("math"); mathTbl != lua.LNil {
		if tbl, ok := mathTbl.(*lua.LTable); ok {
			tbl.RawSetString("randomseed", lua.LNil)
		}
	}
}
