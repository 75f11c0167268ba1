package notifications

import "os"

const (
	TemplateEvaluationAssigned = "evaluation_assigned"
	TemplateReportReady        = "performance_report_ready"
	TemplateCalibrationClosed  = "calibration_closed"
)

type template struct {
	title string
	body  string
}

// Template bodies are plain text with ${var} placeholders.
var templates = map[string]template{
	TemplateEvaluationAssigned: {
		title: "New evaluations assigned in ${cycleName}",
		body:  "Hello ${name}, you have ${count} evaluation(s) to complete in ${cycleName} before ${dueDate}.",
	},
	TemplateReportReady: {
		title: "Your ${cycleName} results are ready",
		body:  "Hello ${name}, the performance cycle ${cycleName} is complete and your report is available.",
	},
	TemplateCalibrationClosed: {
		title: "Calibration ${sessionName} closed",
		body:  "Hello ${name}, the calibration session ${sessionName} has been closed and final ratings are published.",
	},
}

func render(templateID string, vars map[string]string) (string, string, bool) {
	tpl, ok := templates[templateID]
	if !ok {
		return "", "", false
	}
	lookup := func(key string) string { return vars[key] }
	return os.Expand(tpl.title, lookup), os.Expand(tpl.body, lookup), true
}
