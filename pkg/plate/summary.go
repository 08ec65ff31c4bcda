package plate

// VolumeSummaryByComponent sums each component's volume over every well of
// every plate, dead volume included. Components appear in first-appearance
// order (plate order, then well address order). It is a reporting helper and
// plays no part in allocation.
func VolumeSummaryByComponent(plates []*Plate) []Content {
	var out []Content
	pos := make(map[string]int)
	for _, p := range plates {
		for _, w := range p.Wells() {
			for _, c := range w.Contents {
				i, ok := pos[c.Component]
				if !ok {
					i = len(out)
					pos[c.Component] = i
					out = append(out, Content{Component: c.Component})
				}
				out[i].Volume += c.Volume
			}
		}
	}
	return out
}

// SummaryTotal returns the summed volume of a summary.
func SummaryTotal(summary []Content) float64 {
	var total float64
	for _, c := range summary {
		total += c.Volume
	}
	return total
}
