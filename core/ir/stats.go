package ir

// Stats summarizes a dataset.
type Stats struct {
	Documents      int `json:"documents"`
	EmptyDocuments int `json:"empty_documents"`
	Mentions       int `json:"mentions"`
	Entities       int `json:"entities"`
	NILMentions    int `json:"nil_mentions"`
}

// ComputeStats counts documents, mentions and linked entities.
func ComputeStats(d *Dataset) Stats {
	var s Stats
	for _, inst := range d.Instances() {
		s.Documents++
		if inst.Len() == 0 {
			s.EmptyDocuments++
		}
		for _, name := range inst.Entities.EntityNames {
			s.Mentions++
			if name == "" {
				s.NILMentions++
			} else {
				s.Entities++
			}
		}
	}
	return s
}
