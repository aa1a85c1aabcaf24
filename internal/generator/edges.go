package generator

// NoEdge marks a parameter slot that is generated randomly in an edge trial.
const NoEdge = -1

// PlanEdges lays out the edge-case trials for a parameter list. counts[i] is
// the number of edge values registered for parameter i (0 when none). Each
// row holds, per parameter, an index into that parameter's edge values or
// NoEdge.
//
// The full cartesian product is used when it fits in limit rows. Otherwise
// the plan wraps around: row j uses value j mod counts[i], so every listed
// value still appears at least once. A parameter list without edge values
// yields no rows.
func PlanEdges(counts []int, limit int) [][]int {
	longest := 0
	product := 1
	for _, n := range counts {
		if n <= 0 {
			continue
		}
		if n > longest {
			longest = n
		}
		if product <= limit {
			product *= n
		}
	}
	if longest == 0 {
		return nil
	}
	if limit > 0 && product <= limit {
		return cartesian(counts, product)
	}
	rows := make([][]int, longest)
	for j := range rows {
		row := make([]int, len(counts))
		for i, n := range counts {
			if n <= 0 {
				row[i] = NoEdge
				continue
			}
			row[i] = j % n
		}
		rows[j] = row
	}
	return rows
}

func cartesian(counts []int, total int) [][]int {
	rows := make([][]int, 0, total)
	cur := make([]int, len(counts))
	for i, n := range counts {
		if n <= 0 {
			cur[i] = NoEdge
		}
	}
	for {
		rows = append(rows, append([]int(nil), cur...))
		// Odometer increment, last parameter fastest.
		i := len(counts) - 1
		for ; i >= 0; i-- {
			if counts[i] <= 0 {
				continue
			}
			cur[i]++
			if cur[i] < counts[i] {
				break
			}
			cur[i] = 0
		}
		if i < 0 {
			return rows
		}
	}
}
