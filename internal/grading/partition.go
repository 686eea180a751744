package grading

import (
	"encoding/json"
	"fmt"
)

// PartitionStatus classifies a predicted grouping against the true grouping.
type PartitionStatus int

const (
	PartitionNormal PartitionStatus = iota
	PartitionMissingElements
	PartitionExtraElements
	PartitionDuplicateElements
)

var partitionNames = map[PartitionStatus]string{
	PartitionNormal:            "Normal",
	PartitionMissingElements:   "Missing Elements",
	PartitionExtraElements:     "Extra Elements",
	PartitionDuplicateElements: "Duplicate Elements",
}

func (s PartitionStatus) String() string {
	if name, ok := partitionNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PartitionStatus(%d)", int(s))
}

// MarshalJSON encodes the status by its report name.
func (s PartitionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *PartitionStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for status, n := range partitionNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown partition status %q", name)
}

// PartitionStatuses lists every status in precedence order.
func PartitionStatuses() []PartitionStatus {
	return []PartitionStatus{
		PartitionMissingElements,
		PartitionExtraElements,
		PartitionDuplicateElements,
		PartitionNormal,
	}
}

// ValidatePartition reports whether pred is a strict partition of exactly the
// elements covered by truth. Missing elements take precedence over extra
// elements, which take precedence over duplicates. Only the predicted side is
// checked for duplicates; true groupings may overlap.
func ValidatePartition(pred, truth Grouping) PartitionStatus {
	trueElems := truth.Elements()
	predElems := pred.Elements()

	for e := range trueElems {
		if _, ok := predElems[e]; !ok {
			return PartitionMissingElements
		}
	}
	for e := range predElems {
		if _, ok := trueElems[e]; !ok {
			return PartitionExtraElements
		}
	}

	seen := make(map[Element]struct{}, len(predElems))
	for _, group := range pred {
		for _, e := range group {
			if _, dup := seen[e]; dup {
				return PartitionDuplicateElements
			}
			seen[e] = struct{}{}
		}
	}
	return PartitionNormal
}
