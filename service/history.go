package service

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"

	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/model"
)

// PassThreshold is the minimum score classified as Pass in exports.
const PassThreshold = 5

// ExportContentType is the MIME type of the exported workbook.
const ExportContentType = "application/vnd.ms-excel"

var (
	scaffoldScoreRe = regexp.MustCompile(`(?i)SCORE:?\s*\d+`)
	scaffoldLabelRe = regexp.MustCompile(`(?i)EXPLANATION:?`)
	markdownRe      = regexp.MustCompile("[*#_`]")
)

// Paginate windows results into pages. Page 1 covers the first pageSize
// items; a page past the end clamps to the last valid page. Both arguments
// are >= 1 by precondition.
func Paginate(results []model.EvaluationResult, pageSize, page int) []model.EvaluationResult {
	if len(results) == 0 {
		return nil
	}

	lastPage := (len(results) + pageSize - 1) / pageSize
	if page > lastPage {
		page = lastPage
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(results) {
		end = len(results)
	}
	return results[start:end]
}

// CleanScaffold strips the evaluation response scaffolding (score marker,
// explanation label, markdown emphasis) so exported text reads as prose.
func CleanScaffold(text string) string {
	text = scaffoldScoreRe.ReplaceAllString(text, "")
	text = scaffoldLabelRe.ReplaceAllString(text, "")
	text = markdownRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

type exportRow struct {
	Contractor  string
	Criteria    string
	Score       int
	Explanation string
	Conclusion  string
	Passed      bool
}

type exportData struct {
	Rows []exportRow
}

// The original tool consumes this as an Excel-compatible HTML workbook, so
// the export keeps that format rather than OOXML.
var exportTemplate = template.Must(template.New("export").Parse(`<html xmlns:o="urn:schemas-microsoft-com:office:office" xmlns:x="urn:schemas-microsoft-com:office:excel" xmlns="http://www.w3.org/TR/REC-html40">
<head>
<meta charset="utf-8" />
<!--[if gte mso 9]><xml><x:ExcelWorkbook><x:ExcelWorksheets><x:ExcelWorksheet><x:Name>Evaluation Results</x:Name><x:WorksheetOptions><x:DisplayGridlines/></x:WorksheetOptions></x:ExcelWorksheet></x:ExcelWorksheets></x:ExcelWorkbook></xml><![endif]-->
<style>
td { vertical-align: top; padding: 5px; }
.wrap-text { white-space: pre-wrap; word-wrap: break-word; }
</style>
</head>
<body>
<table border="1">
<thead>
<tr style="background-color: #f0f0f0; font-weight: bold;">
<th style="width: 150px;">Contractor</th>
<th style="width: 200px;">Criteria</th>
<th style="width: 80px;">Score</th>
<th style="width: 400px;">Explanation</th>
<th style="width: 100px;">Conclusion</th>
</tr>
</thead>
<tbody>
{{range .Rows}}<tr>
<td>{{.Contractor}}</td>
<td>{{.Criteria}}</td>
<td style="text-align: center;">{{.Score}}</td>
<td class="wrap-text">{{.Explanation}}</td>
<td style="text-align: center; color: {{if .Passed}}green{{else}}red{{end}}; font-weight: bold;">{{.Conclusion}}</td>
</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

// ExportTable renders a contractor's results as a spreadsheet-compatible
// byte stream with Contractor, Criteria, Score, Explanation and Conclusion
// columns. Conclusion is Pass at score >= 5, Fail below.
func ExportTable(contractorName string, results []model.EvaluationResult) ([]byte, error) {
	data := exportData{Rows: make([]exportRow, 0, len(results))}
	for _, r := range results {
		passed := r.Score >= PassThreshold
		conclusion := "Fail"
		if passed {
			conclusion = "Pass"
		}
		data.Rows = append(data.Rows, exportRow{
			Contractor:  contractorName,
			Criteria:    r.CriteriaPrompt,
			Score:       r.Score,
			Explanation: CleanScaffold(r.Comment),
			Conclusion:  conclusion,
			Passed:      passed,
		})
	}

	var buf bytes.Buffer
	if err := exportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render export: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFilename is the suggested download name for a contractor's export.
func ExportFilename(contractorName string) string {
	return fmt.Sprintf("evaluation_%s.xls", contractorName)
}
