/*
 * st61131 - Standard POU Engine: built-in FB instance state machines.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package stdfb reproduces the timer, counter, edge-detector, and bistable
// state machines of IEC 61131-3's standard function block library. Each
// Update function is a pure transition over the fields of one
// tagstore.Instance record: it advances its memory and sets its outputs,
// exactly once per call site per scan. The call site (internal/exec) writes
// the supplied inputs into the same record before calling it. The
// kind of edge detection an instance performs follows its declared type,
// never its identifier.
package stdfb

import (
	"github.com/rcornwell/st61131/internal/tagstore"
	"github.com/rcornwell/st61131/internal/value"
)

// UpdateTON advances an on-delay timer one call. delta is the elapsed
// milliseconds the scan driver supplies since the instance's previous call;
// the call that sees IN rise already counts its delta toward ET.
func UpdateTON(inst *tagstore.Instance, in bool, pt int64, delta int64) {
	f := inst.Fields
	prevIn := f["prev_IN"].B
	f["PT"] = value.NewTime(pt)

	rising := in && !prevIn
	falling := !in && prevIn

	switch {
	case rising:
		f["ET"] = value.NewTime(0)
		if pt <= 0 {
			f["Q"] = value.NewBool(true)
			f["running"] = value.NewBool(false)
		} else {
			et := delta
			if et > pt {
				et = pt
			}
			f["ET"] = value.NewTime(et)
			f["Q"] = value.NewBool(et >= pt)
			f["running"] = value.NewBool(et < pt)
		}
	case falling:
		f["running"] = value.NewBool(false)
		f["ET"] = value.NewTime(0)
		f["Q"] = value.NewBool(false)
	case f["running"].B:
		et := f["ET"].T + delta
		if et > pt {
			et = pt
		}
		f["ET"] = value.NewTime(et)
		if et >= pt {
			f["Q"] = value.NewBool(true)
			f["running"] = value.NewBool(false)
		}
	}

	f["prev_IN"] = value.NewBool(in)
	f["IN"] = value.NewBool(in)
}

// UpdateCTU advances a count-up counter one call.
func UpdateCTU(inst *tagstore.Instance, cu, r bool, pv int64) {
	f := inst.Fields
	prevCU := f["prev_CU"].B
	f["PV"] = value.NewInt(pv)
	rising := cu && !prevCU

	if r {
		f["CV"] = value.NewInt(0)
		f["QU"] = value.NewBool(0 >= pv)
		f["prev_CU"] = value.NewBool(cu)
		return
	}
	if rising {
		f["CV"] = value.NewInt(f["CV"].I + 1)
	}
	f["QU"] = value.NewBool(f["CV"].I >= pv)
	f["prev_CU"] = value.NewBool(cu)
}

// UpdateCTD advances a count-down counter one call. CV is
// clamped at 0 and never goes negative.
func UpdateCTD(inst *tagstore.Instance, cd, ld bool, pv int64) {
	f := inst.Fields
	f["PV"] = value.NewInt(pv)

	if ld {
		f["CV"] = value.NewInt(pv)
		f["QD"] = value.NewBool(pv <= 0)
		f["prev_CD"] = value.NewBool(cd)
		return
	}
	prevCD := f["prev_CD"].B
	rising := cd && !prevCD
	if rising {
		cv := f["CV"].I - 1
		if cv < 0 {
			cv = 0
		}
		f["CV"] = value.NewInt(cv)
	}
	f["QD"] = value.NewBool(f["CV"].I <= 0)
	f["prev_CD"] = value.NewBool(cd)
}

// UpdateCTUD advances an up/down counter one call. Reset takes
// priority over load; load takes priority over the up/down rising edges.
func UpdateCTUD(inst *tagstore.Instance, cu, cd, r, ld bool, pv int64) {
	f := inst.Fields
	f["PV"] = value.NewInt(pv)
	prevCU := f["prev_CU"].B
	prevCD := f["prev_CD"].B
	cuRising := cu && !prevCU
	cdRising := cd && !prevCD

	switch {
	case r:
		f["CV"] = value.NewInt(0)
	case ld:
		f["CV"] = value.NewInt(pv)
	default:
		cv := f["CV"].I
		if cuRising {
			cv++
		}
		if cdRising {
			cv--
			if cv < 0 {
				cv = 0
			}
		}
		f["CV"] = value.NewInt(cv)
	}

	cv := f["CV"].I
	f["QU"] = value.NewBool(cv >= pv)
	f["QD"] = value.NewBool(cv <= 0)
	f["prev_CU"] = value.NewBool(cu)
	f["prev_CD"] = value.NewBool(cd)
}

// UpdateRTrig detects a rising edge on CLK.
func UpdateRTrig(inst *tagstore.Instance, clk bool) {
	f := inst.Fields
	m := f["M"].B
	f["Q"] = value.NewBool(clk && !m)
	f["M"] = value.NewBool(clk)
}

// UpdateFTrig detects a falling edge on CLK. The instance's declared type,
// not its identifier, selects this function over UpdateRTrig — an instance
// named MotorStop but declared F_TRIG still falls on a falling edge.
func UpdateFTrig(inst *tagstore.Instance, clk bool) {
	f := inst.Fields
	m := f["M"].B
	f["Q"] = value.NewBool(!clk && m)
	f["M"] = value.NewBool(clk)
}

// UpdateSR applies the set-dominant bistable: S1 wins over R.
func UpdateSR(inst *tagstore.Instance, s1, r bool) {
	f := inst.Fields
	switch {
	case s1:
		f["Q1"] = value.NewBool(true)
	case r:
		f["Q1"] = value.NewBool(false)
	}
}

// UpdateRS applies the reset-dominant bistable: R1 wins over S.
func UpdateRS(inst *tagstore.Instance, r1, s bool) {
	f := inst.Fields
	switch {
	case r1:
		f["Q1"] = value.NewBool(false)
	case s:
		f["Q1"] = value.NewBool(true)
	}
}
