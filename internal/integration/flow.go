package integration

import (
	"context"
	"errors"
	"strings"

	concord4 "github.com/caarlos0/concord4-bridge"
)

type ResultType string

const (
	ResultForm        ResultType = "form"
	ResultCreateEntry ResultType = "create_entry"
)

// Error codes shown to the user.
const (
	ErrorBase          = "base"
	ErrorCannotConnect = "cannot_connect"
	ErrorUnknown       = "unknown"
	ErrorRequired      = "required"
	ErrorInvalidPort   = "invalid_port"
)

const StepUser = "user"

type SchemaField struct {
	Name     string
	Type     string
	Required bool
}

// UserSchema is the form of the user step.
var UserSchema = []SchemaField{
	{Name: "name", Type: "string", Required: true},
	{Name: "host", Type: "string", Required: true},
	{Name: "port", Type: "port", Required: true},
}

// UserInput is the raw form submission.
type UserInput struct {
	Name string
	Host string
	Port string
}

type FlowResult struct {
	Type   ResultType
	StepID string
	Schema []SchemaField
	Errors map[string]string

	Title string
	Data  EntryData
}

// ConfigFlow collects and validates the connection details of a panel.
type ConfigFlow struct {
	Dial Dialer
}

func NewConfigFlow(dial Dialer) *ConfigFlow {
	return &ConfigFlow{Dial: dial}
}

// StepUser shows the form when input is nil, otherwise validates it with a
// single test connection.
func (f *ConfigFlow) StepUser(ctx context.Context, input *UserInput) FlowResult {
	errs := map[string]string{}
	if input == nil {
		return f.form(errs)
	}

	data, ok := validateSchema(*input, errs)
	if !ok {
		return f.form(errs)
	}

	if err := validateInput(ctx, f.Dial, data); err != nil {
		if errors.Is(err, concord4.ErrCannotConnect) {
			log.Warn("cannot connect", "host", data.Host, "port", data.Port, "err", err)
			errs[ErrorBase] = ErrorCannotConnect
		} else {
			log.Error("unexpected exception", "host", data.Host, "port", data.Port, "err", err)
			errs[ErrorBase] = ErrorUnknown
		}
		return f.form(errs)
	}

	return FlowResult{
		Type:  ResultCreateEntry,
		Title: EntryTitle,
		Data:  data,
	}
}

func (f *ConfigFlow) form(errs map[string]string) FlowResult {
	return FlowResult{
		Type:   ResultForm,
		StepID: StepUser,
		Schema: UserSchema,
		Errors: errs,
	}
}

func validateSchema(input UserInput, errs map[string]string) (EntryData, bool) {
	data := EntryData{
		Name: strings.TrimSpace(input.Name),
		Host: strings.TrimSpace(input.Host),
	}
	if data.Name == "" {
		errs["name"] = ErrorRequired
	}
	if data.Host == "" {
		errs["host"] = ErrorRequired
	}
	if strings.TrimSpace(input.Port) == "" {
		errs["port"] = ErrorRequired
	} else if port, err := ParsePort(input.Port); err != nil {
		errs["port"] = ErrorInvalidPort
	} else {
		data.Port = port
	}
	return data, len(errs) == 0
}

func validateInput(ctx context.Context, dial Dialer, data EntryData) error {
	cli := dial(data.Host, data.Port)
	defer func() { _ = cli.Close() }()
	return cli.TestConnect(ctx)
}
