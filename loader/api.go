package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// maxRangeLen bounds Range() so a typo cannot exhaust memory.
const maxRangeLen = 100000

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Simulation { title = "...", dice = { ... }, ... }
	L.SetGlobal("Simulation", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		if coll.sim != nil {
			L.RaiseError("Simulation already defined in %s", coll.simFile)
		}
		coll.sim = tbl
		coll.simFile = coll.file
		return 0
	}))

	// Die "id" { faces = { ... }, weights = { ... } }
	// Curried: Die("id") returns a function that takes a table.
	L.SetGlobal("Die", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		file := coll.file
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := L.CheckTable(1)
			coll.dice = append(coll.dice, rawDie{id: id, file: file, table: tbl})
			return 0
		}))
		return 1
	}))
}

func registerHelpers(L *lua.LState) {
	// Range(lo, hi [, step]) → { lo, lo+step, ..., hi }
	L.SetGlobal("Range", L.NewFunction(func(L *lua.LState) int {
		lo := float64(L.CheckNumber(1))
		hi := float64(L.CheckNumber(2))
		step := float64(L.OptNumber(3, 1))
		if step == 0 {
			L.ArgError(3, "step must not be zero")
		}
		if (hi-lo)/step+1 > maxRangeLen {
			L.ArgError(2, "range is too long")
		}

		tbl := L.NewTable()
		if step > 0 {
			for v := lo; v <= hi; v += step {
				tbl.Append(lua.LNumber(v))
			}
		} else {
			for v := lo; v >= hi; v += step {
				tbl.Append(lua.LNumber(v))
			}
		}
		L.Push(tbl)
		return 1
	}))
}
