// Package plugin registers the analyzer as a golangci-lint module plugin.
package plugin

import (
	"strconv"

	"github.com/cschleiden/go-dialogflow/analyzer"
	"github.com/golangci/plugin-module-register/register"
	"golang.org/x/tools/go/analysis"
)

func init() {
	register.Plugin("dialogflow", New)
}

type Settings struct {
	CheckPrivateReturnValues bool `json:"check-private-return-values"`
}

type analyzerPlugin struct {
	settings Settings
}

func New(settings any) (register.LinterPlugin, error) {
	s, err := register.DecodeSettings[Settings](settings)
	if err != nil {
		return nil, err
	}

	return &analyzerPlugin{settings: s}, nil
}

func (p *analyzerPlugin) BuildAnalyzers() ([]*analysis.Analyzer, error) {
	a := analyzer.New()
	if err := a.Flags.Set("checkprivatereturnvalues", strconv.FormatBool(p.settings.CheckPrivateReturnValues)); err != nil {
		return nil, err
	}

	return []*analysis.Analyzer{a}, nil
}

func (p *analyzerPlugin) GetLoadMode() string {
	return register.LoadModeTypesInfo
}
