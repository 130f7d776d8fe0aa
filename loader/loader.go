package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nathoo/dicelab/engine/state"
	lua "github.com/yuin/gopher-lua"
)

// collector accumulates Lua definitions during file execution.
type collector struct {
	sim     *lua.LTable
	simFile string
	dice    []rawDie
	file    string // file currently executing
}

// Load reads all .lua files from dir, compiles them into simulation
// definitions, validates them, and returns the immutable Defs. The Lua VM
// is discarded after loading.
func Load(dir string) (*state.Defs, error) {
	// Discover .lua files.
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading simulation directory %s: %w", dir, err)
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

	// Sort: sim.lua first, rest alphabetical.
	luaFiles = sortedLuaFiles(luaFiles)

	paths := make([]string, len(luaFiles))
	for i, f := range luaFiles {
		paths[i] = filepath.Join(dir, f)
	}
	return loadLua(paths)
}

// LoadFile loads a single .lua, .yaml or .yml definition file.
func LoadFile(path string) (*state.Defs, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lua":
		return loadLua([]string{path})
	case ".yaml", ".yml":
		return loadYAML(path)
	default:
		return nil, fmt.Errorf("unsupported definition file %s: want .lua, .yaml or .yml", path)
	}
}

func loadLua(paths []string) (*state.Defs, error) {
	// Create sandboxed VM.
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()

	// Open safe libs only.
	openSafeLibs(L)

	// Sandbox: remove dangerous globals.
	sandbox(L)

	// Register API.
	coll := &collector{}
	registerAPI(L, coll)

	// Execute each file.
	for _, path := range paths {
		coll.file = filepath.Base(path)
		if err := L.DoFile(path); err != nil {
			return nil, fmt.Errorf("executing %s: %w", coll.file, err)
		}
	}

	doc, err := coll.document()
	if err != nil {
		return nil, err
	}
	return finish(doc)
}

// finish compiles and validates a parsed document.
func finish(doc *document) (*state.Defs, error) {
	defs, err := compile(doc)
	if err != nil {
		return nil, fmt.Errorf("compiling simulation: %w", err)
	}

	if err := validate(defs); err != nil {
		return nil, err
	}

	if defs.Sim.Rolls == 0 {
		defs.Sim.Rolls = 1
	}
	return defs, nil
}

// sortedLuaFiles returns .lua files with sim.lua first and the rest
// sorted alphabetically.
func sortedLuaFiles(files []string) []string {
	var simFile string
	var others []string
	for _, f := range files {
		if f == "sim.lua" {
			simFile = f
		} else {
			others = append(others, f)
		}
	}
	sort.Strings(others)
	if simFile != "" {
		return append([]string{simFile}, others...)
	}
	return others
}

// openSafeLibs opens only the safe subset of Lua standard libraries.
func openSafeLibs(L *lua.LState) {
	// Base library (print, type, tostring, tonumber, pairs, ipairs, etc.)
	lua.OpenBase(L)
	// Table library (table.insert, table.sort, etc.)
	lua.OpenTable(L)
	// String library (string.format, string.sub, etc.)
	lua.OpenString(L)
	// Math library (math.floor, math.max, etc.)
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

	// Definitions must not reseed the shared Lua math generator.
	if mathTbl := L.GetGlobal("math"); mathTbl != lua.LNil {
		if tbl, ok := mathTbl.(*lua.LTable); ok {
			tbl.RawSetString("randomseed", lua.LNil)
		}
	}
}
