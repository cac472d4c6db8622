package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"

	"github.com/Skufu/dhanvantari/internal/analysis"
	"github.com/Skufu/dhanvantari/internal/charts"
	"github.com/Skufu/dhanvantari/internal/export"
	"github.com/Skufu/dhanvantari/internal/patient"
	"github.com/Skufu/dhanvantari/internal/vitals"
)

const (
	appTitle   = "Dhanvantari"
	pageHome   = "home.html"
	pageSelect = "analysis.html"
	pageReport = "report.html"
	pageError  = "error.html"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"markdown": markdown,
	"signed":   func(v float64) string { return fmt.Sprintf("%+.2f%%", v) },
	"band":     func(v float64) string { return vitals.BandFor(v).Color() },
}).ParseFS(templateFS, "templates/*.html"))

type layout struct {
	Title     string
	Active    string
	RequestID string
}

type homeView struct {
	layout
	Patients int
	Source   string
}

type selectView struct {
	layout
	Options  []string
	Selected string
}

type reportView struct {
	selectView
	Report      analysis.Report
	VitalsChart template.HTML
	BMIChart    template.HTML
	Fields      []patient.Field
	RawDataURL  string
}

type errorView struct {
	layout
	Status  int
	Message string
}

func (s *Server) page(c *gin.Context, title, active string) layout {
	return layout{Title: title, Active: active, RequestID: c.GetString(keyRequestID)}
}

func (s *Server) home(c *gin.Context) {
	c.HTML(http.StatusOK, pageHome, homeView{
		layout:   s.page(c, "Welcome to "+appTitle, "home"),
		Patients: s.analyzer.Store().Len(),
		Source:   s.source,
	})
}

func (s *Server) analysisPage(c *gin.Context) {
	c.HTML(http.StatusOK, pageSelect, s.selector(c, c.Query("patient")))
}

func (s *Server) selector(c *gin.Context, selected string) selectView {
	options := s.analyzer.Store().Options()
	if selected == "" && len(options) > 0 {
		selected = options[0]
	}
	return selectView{
		layout:   s.page(c, "Patient Analysis", "analysis"),
		Options:  options,
		Selected: selected,
	}
}

func (s *Server) generateAnalysis(c *gin.Context) {
	selection := c.PostForm("patient")
	if strings.TrimSpace(selection) == "" {
		s.fail(c, httpError{Status: http.StatusBadRequest, Message: "select a patient first"})
		return
	}

	report, err := s.analyzer.Analyze(c.Request.Context(), selection)
	if err != nil {
		s.fail(c, err)
		return
	}

	view := reportView{
		selectView: s.selector(c, report.Patient.DisplayName()),
		Report:     report,
		Fields:     report.Patient.Fields(),
		RawDataURL: "/patients/" + url.PathEscape(report.Patient.ID) + "/raw.xlsx",
	}

	if view.VitalsChart, err = charts.VitalsBar(report.Performance); err != nil {
		s.fail(c, err)
		return
	}
	if report.BMICategory != "" {
		if view.BMIChart, err = charts.BMIChart(report.BMI); err != nil {
			s.fail(c, err)
			return
		}
	}

	c.HTML(http.StatusOK, pageReport, view)
}

func (s *Server) downloadRawData(c *gin.Context) {
	rec, err := s.analyzer.Store().Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WritePatient(&buf, rec); err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": export.FileName(rec)}))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// fail renders err as JSON under /api and as an error page elsewhere.
func (s *Server) fail(c *gin.Context, err error) {
	he := toHTTPError(err)
	if he.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}

	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.AbortWithStatusJSON(he.Status, gin.H{"error": he.Message})
		return
	}

	c.HTML(he.Status, pageError, errorView{
		layout:  s.page(c, http.StatusText(he.Status), ""),
		Status:  he.Status,
		Message: he.Message,
	})
	c.Abort()
}

// markdown renders model output. Raw HTML in the input is dropped.
func markdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}
