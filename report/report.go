// Copyright 2025 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2025 Department of Linguistics,
// Faculty of Arts, Charles University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/czcorpus/vgsales/dataset"
	"github.com/czcorpus/vgsales/eval"
	"github.com/czcorpus/vgsales/history"
	"github.com/czcorpus/vgsales/profile"
	"github.com/czcorpus/vgsales/split"
	"github.com/jedib0t/go-pretty/v6/table"
)

// Reporter renders results of individual pipeline stages and
// stores the optional run artifacts.
type Reporter struct {
	Out io.Writer

	// DatasetPath is used to derive the name of the stored model file
	DatasetPath string

	// MisclassOutPath is a TSV file with misclassified test records.
	// Empty value disables the output.
	MisclassOutPath string

	// ResultsOutPath is a msgpack file with the complete run summary.
	// Empty value disables the output.
	ResultsOutPath string

	// ModelDir is a directory where the best model is stored.
	// Empty value disables the output.
	ModelDir string
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func fmtScore(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4f", v)
}

func fmtNum(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

func fmtPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// ShowProfile prints the structural summary of a dataset followed
// by the recommendations (if any).
func (r *Reporter) ShowProfile(summary profile.Summary, recs []profile.Recommendation) {
	t := newTable(r.Out, fmt.Sprintf("Dataset profile (%d rows)", summary.Rows))
	t.AppendHeader(table.Row{"column", "kind", "missing", "distinct", "min", "max", "mean", "std", "median"})
	for _, col := range summary.Columns {
		if col.Kind == dataset.KindNumeric {
			t.AppendRow(table.Row{
				col.Name, col.Kind, col.Missing, col.Cardinality,
				fmtNum(col.Min), fmtNum(col.Max), fmtNum(col.Mean), fmtNum(col.Std), fmtNum(col.Median),
			})

		} else {
			t.AppendRow(table.Row{col.Name, col.Kind, col.Missing, col.Cardinality, "", "", "", "", ""})
		}
	}
	t.Render()
	if len(recs) == 0 {
		return
	}
	fmt.Fprintln(r.Out, "Recommendations:")
	for _, rec := range recs {
		fmt.Fprintf(r.Out, "  * %s\n", rec)
	}
}

func (r *Reporter) ShowCleaning(rep dataset.CleaningReport) {
	fmt.Fprintf(
		r.Out, "Missing values policy: %s, rows %d -> %d (dropped %d)\n",
		rep.Policy, rep.RowsBefore, rep.RowsAfter, rep.Dropped)
	for _, col := range rep.ImputedColumns() {
		fmt.Fprintf(
			r.Out, "  imputed %s: %d values filled with %s\n",
			col, rep.ImputedCols[col], rep.FillValues[col])
	}
}

func (r *Reporter) ShowTarget(rep dataset.TargetReport) {
	fmt.Fprintf(
		r.Out, "Target: success = %s > %g (%s), positive %d, negative %d, positive rate %s\n",
		rep.SalesColumn, rep.Threshold, rep.Mode, rep.Positive, rep.Negative,
		fmtPercent(rep.PositiveRate()))
}

// ShowSplits prints sizes and class balance of all partitions.
// The test partition is inspected without being consumed.
func (r *Reporter) ShowSplits(splits *split.Splits) {
	t := newTable(r.Out, "Partitions")
	t.AppendHeader(table.Row{"partition", "size", "positive", "positive rate"})
	for _, p := range []*split.Partition{splits.Train, splits.Validation} {
		t.AppendRow(table.Row{p.Name, p.Len(), p.NumPositive(), fmtPercent(p.PositiveRate())})
	}
	var testRate float64
	if splits.Test.Len() > 0 {
		testRate = float64(splits.Test.NumPositive()) / float64(splits.Test.Len())
	}
	t.AppendRow(table.Row{"test", splits.Test.Len(), splits.Test.NumPositive(), fmtPercent(testRate)})
	t.AppendFooter(table.Row{"features", strings.Join(splits.FeatureNames, ", ")})
	t.Render()
}

// ShowResults prints the ranked evaluation results followed by
// sections listing failed families and failed candidates of otherwise
// successful families.
func (r *Reporter) ShowResults(results []*eval.EvaluationResult, metric eval.Scorer) {
	t := newTable(r.Out, fmt.Sprintf("Model comparison (%s)", metric))
	t.AppendHeader(table.Row{
		"rank", "family", "params", "cv score", "validation", "gap", "viable", "failed", "status"})
	var failed, partial []*eval.EvaluationResult
	for _, res := range results {
		numFailed := fmt.Sprintf("%d/%d", res.NumFailed, res.NumCandidates)
		if !res.IsOK() {
			failed = append(failed, res)
			t.AppendRow(table.Row{res.Position, res.Family, "", "-", "-", "-", "", numFailed, res.Status})
			continue
		}
		if len(res.Errors) > 0 {
			partial = append(partial, res)
		}
		viable := "no"
		if res.Viable {
			viable = "yes"
		}
		t.AppendRow(table.Row{
			res.Position,
			res.Family,
			res.Params.String(),
			fmt.Sprintf("%s ± %s", fmtScore(res.CVScore), fmtScore(res.CVStd)),
			fmtScore(res.ValidationScore),
			fmtScore(res.Gap),
			viable,
			numFailed,
			res.Status,
		})
	}
	t.Render()
	if len(failed) > 0 {
		fmt.Fprintln(r.Out, "Failed families:")
		for _, res := range failed {
			fmt.Fprintf(r.Out, "  %s: %s\n", res.Family, res.ErrorSummary())
		}
	}
	if len(partial) > 0 {
		fmt.Fprintln(r.Out, "Failed candidates:")
		for _, res := range partial {
			fmt.Fprintf(
				r.Out, "  %s (%d of %d): %s\n",
				res.Family, res.NumFailed, res.NumCandidates, res.ErrorSummary())
		}
	}
}

// ShowBaselines prints validation scores of constant classifiers
func (r *Reporter) ShowBaselines(baselines []eval.BaselineScore, metric eval.Scorer) {
	items := make([]string, len(baselines))
	for i, b := range baselines {
		items[i] = fmt.Sprintf("%s %s", b.Name, fmtScore(b.Score))
	}
	fmt.Fprintf(r.Out, "Baselines (validation %s): %s\n", metric, strings.Join(items, ", "))
}

// TestScoreLine formats the single final test score
func TestScoreLine(rep *eval.TestReport) string {
	return fmt.Sprintf(
		"TEST %s = %.4f (%s, %s)",
		rep.Metric, rep.Score, rep.Family, rep.Params.String())
}

func (r *Reporter) ShowTestScore(rep *eval.TestReport) {
	fmt.Fprintln(r.Out, TestScoreLine(rep))
	fmt.Fprintf(
		r.Out, "  precision: %s, recall: %s, f1: %s, accuracy: %s\n",
		fmtScore(rep.Precision), fmtScore(rep.Recall), fmtScore(rep.F1), fmtScore(rep.Accuracy))
	fmt.Fprintf(r.Out, "  %s, test size: %d\n", rep.Confusion, rep.Size)
}

// ShowRun prints a run stored in the history database
func (r *Reporter) ShowRun(run history.Run, results []history.RunResult) {
	fmt.Fprintf(
		r.Out, "Run #%d (%s), dataset %s, seed %d, policy %s\n",
		run.ID, run.Created.Format(time.RFC3339), run.Dataset, run.Seed, run.Policy)
	fmt.Fprintf(
		r.Out, "Target: %s > %g, partitions %d / %d / %d\n",
		run.SalesColumn, run.Threshold, run.TrainSize, run.ValidationSize, run.TestSize)
	t := newTable(r.Out, "")
	t.AppendHeader(table.Row{"rank", "family", "params", "cv score", "validation", "status", "error"})
	for _, res := range results {
		t.AppendRow(table.Row{
			res.Position, res.Family, res.Params.String(), fmtScore(res.CVScore),
			fmtScore(res.ValidationScore), res.Status, res.Error,
		})
	}
	t.Render()
	if run.BestFamily != "" {
		fmt.Fprintf(r.Out, "TEST %s = %s (%s)\n", run.TestMetric, fmtScore(run.TestScore), run.BestFamily)
	}
}
