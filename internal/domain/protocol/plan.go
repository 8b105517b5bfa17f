package protocol

// ExpandSteps unrolls cycle markers into the ordered transfer list.
//
// Rows from a start row through the next end row run repeat times, with
// repeat read from the start row and 0 treated as 1. A start without an
// end runs to the last row. A second start closes the open cycle just
// before itself. An end outside a cycle is an ordinary row.
func ExpandSteps(rows []RowView) []Step {
	steps := make([]Step, 0, CountSteps(rows))
	for i := 0; i < len(rows); {
		if rows[i].Cycle != CycleStart {
			steps = append(steps, stepFor(rows[i]))
			i++
			continue
		}

		end := cycleEnd(rows, i)
		repeat := rows[i].Repeat
		if repeat < 1 {
			repeat = 1
		}
		for n := 0; n < repeat; n++ {
			for _, r := range rows[i : end+1] {
				steps = append(steps, stepFor(r))
			}
		}
		i = end + 1
	}
	return steps
}

// CountSteps returns how many steps ExpandSteps would produce without
// materializing them.
func CountSteps(rows []RowView) int {
	n := 0
	for i := 0; i < len(rows); {
		if rows[i].Cycle != CycleStart {
			n++
			i++
			continue
		}
		end := cycleEnd(rows, i)
		n += max(rows[i].Repeat, 1) * (end - i + 1)
		i = end + 1
	}
	return n
}

func cycleEnd(rows []RowView, start int) int {
	for j := start + 1; j < len(rows); j++ {
		switch rows[j].Cycle {
		case CycleEnd:
			return j
		case CycleStart:
			return j - 1
		}
	}
	return len(rows) - 1
}

func stepFor(r RowView) Step {
	return Step{
		Row:      r.Index,
		Volume:   r.Quantities.Volume,
		FromPort: r.FromPort,
		ToPort:   r.ToPort,
	}
}
