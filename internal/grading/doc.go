// Package grading scores a model's grouped answers against annotated ground truth.
//
// A received record groups information sources (elements) and gives one
// candidate answer with reasons per group. Grading it against its ground truth
// produces four figures:
//
//   - BadPartition classifies the predicted grouping against the true one.
//     Missing Elements wins over Extra Elements, which wins over Duplicate
//     Elements.
//   - NMI is the soft normalized mutual information between the true grouping,
//     where groups may overlap, and the predicted partition. It is only
//     computed for Normal partitions and is zero otherwise.
//   - AnswerScore is the share of gold answers matched one-to-one by candidate
//     answers, where a candidate matches a gold answer when it contains one of
//     its judge keywords.
//   - ReasonScore measures how well the reasons of each matched pair cover the
//     gold reasons, normalized by the size of both sides.
//
// Matching uses an exhaustive depth-first search over assignments with a
// bounded memo table, so texts and groups are limited to 64 each.
//
// Basic usage:
//
//	received, err := grading.ParseReceived(data)
//	if err != nil {
//		return err
//	}
//	result, err := grading.NewGrader(nil).Grade(received, truth)
package grading
