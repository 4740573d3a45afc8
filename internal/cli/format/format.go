package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/clintjedwards/gofer/internal/models"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UnixMilli returns a humanized version of time given in unix millisecond. The zeroMsg is the string returned when
// the time is 0 and assumed to be not set.
func UnixMilli(unix uint64, zeroMsg string, detail bool) string {
	if unix == 0 {
		return zeroMsg
	}

	if !detail {
		return humanize.Time(time.UnixMilli(int64(unix)))
	}

	relativeTime := humanize.Time(time.UnixMilli(int64(unix)))
	realTime := time.UnixMilli(int64(unix)).Format(time.RFC850)
	return fmt.Sprintf("%s (%s)", realTime, relativeTime)
}

// Duration returns a humanized duration time for two epoch milli second times.
func Duration(start, end uint64) string {
	if start == 0 {
		return "0s"
	}

	startTime := time.UnixMilli(int64(start))
	endTime := time.Now()

	if end != 0 {
		endTime = time.UnixMilli(int64(end))
	}

	duration := endTime.Sub(startTime)

	truncate := 1 * time.Second

	return "~" + duration.Truncate(truncate).String()
}

// NormalizeEnumValue humanizes SCREAMING_SNAKE enum values. The unknownMsg is substituted when the
// value is empty or the UNKNOWN sentinel.
func NormalizeEnumValue[s ~string](value s, unknownMsg string) string {
	if value == "" || strings.EqualFold(string(value), "unknown") {
		return unknownMsg
	}

	// Because of how colorizing a string works we need to
	// do the manipulations on case first or else it will not work.
	toTitle := cases.Title(language.AmericanEnglish)
	toLower := cases.Lower(language.AmericanEnglish)
	normalized := toTitle.String(toLower.String(string(value)))
	return strings.ReplaceAll(normalized, "_", " ")
}

func PipelineState(state string) string {
	return colorize(NormalizeEnumValue(state, "Unknown"), map[string]func(string, ...interface{}) string{
		string(models.PipelineStateActive):   color.GreenString,
		string(models.PipelineStateDisabled): color.YellowString,
	}[strings.ToUpper(state)])
}

func PipelineConfigState(state string) string {
	return colorize(NormalizeEnumValue(state, "Unknown"), map[string]func(string, ...interface{}) string{
		string(models.PipelineConfigStateLive):       color.GreenString,
		string(models.PipelineConfigStateUnreleased): color.YellowString,
		string(models.PipelineConfigStateDeprecated): color.RedString,
	}[strings.ToUpper(state)])
}

func RunState(state string) string {
	return colorize(NormalizeEnumValue(state, "Not Run"), map[string]func(string, ...interface{}) string{
		string(models.RunStatePending):  color.YellowString,
		string(models.RunStateRunning):  color.YellowString,
		string(models.RunStateComplete): color.BlueString,
	}[strings.ToUpper(state)])
}

func RunStatus(status string) string {
	return colorize(NormalizeEnumValue(status, "Unknown"), map[string]func(string, ...interface{}) string{
		string(models.RunStatusSuccessful): color.GreenString,
		string(models.RunStatusFailed):     color.RedString,
		string(models.RunStatusCancelled):  color.YellowString,
	}[strings.ToUpper(status)])
}

func TaskExecutionState(state string) string {
	return colorize(NormalizeEnumValue(state, "Not Run"), map[string]func(string, ...interface{}) string{
		string(models.TaskExecutionStateProcessing): color.YellowString,
		string(models.TaskExecutionStateWaiting):    color.BlueString,
		string(models.TaskExecutionStateRunning):    color.YellowString,
		string(models.TaskExecutionStateComplete):   color.BlueString,
	}[strings.ToUpper(state)])
}

func TaskExecutionStatus(status string) string {
	return colorize(NormalizeEnumValue(status, "Unknown"), map[string]func(string, ...interface{}) string{
		string(models.TaskExecutionStatusSuccessful): color.GreenString,
		string(models.TaskExecutionStatusFailed):     color.RedString,
		string(models.TaskExecutionStatusCancelled):  color.YellowString,
		string(models.TaskExecutionStatusSkipped):    color.YellowString,
	}[strings.ToUpper(status)])
}

func ExtensionState(state string) string {
	return colorize(NormalizeEnumValue(state, "Unknown"), map[string]func(string, ...interface{}) string{
		string(models.ExtensionStateRunning): color.GreenString,
		string(models.ExtensionStateExited):  color.RedString,
	}[strings.ToUpper(state)])
}

func SubscriptionStatus(status string) string {
	return colorize(NormalizeEnumValue(status, "Unknown"), map[string]func(string, ...interface{}) string{
		string(models.PipelineExtensionSubscriptionStatusActive): color.GreenString,
		string(models.PipelineExtensionSubscriptionStatusError):  color.RedString,
	}[strings.ToUpper(status)])
}

func colorize(value string, colorFn func(string, ...interface{}) string) string {
	if colorFn == nil {
		return value
	}

	return colorFn(value)
}

func SliceJoin(slice []string, msg string) string {
	if len(slice) == 0 {
		return msg
	}

	return strings.Join(slice, ", ")
}

// Health returns a quick colorized summary string for a window of recent run statuses.
func Health(statuses []models.RunStatus, emoji bool) string {
	failed := 0
	passed := 0
	for _, status := range statuses {
		switch status {
		case models.RunStatusFailed, models.RunStatusUnknown:
			failed++
		default:
			passed++
		}
	}

	healthString := ""

	if failed > 0 && passed == 0 {
		if emoji {
			healthString = "☔︎ "
		}
		return color.RedString(healthString + "Poor")
	}

	if failed > 0 && passed > 0 {
		if emoji {
			healthString = "☁︎ "
		}
		return color.YellowString(healthString + "Unstable")
	}

	if emoji {
		healthString = "☀︎ "
	}

	return color.GreenString(healthString + "Good")
}

// Dependencies returns human readable sentences describing a task's parent requirements.
func Dependencies(dependencies map[string]models.RequiredParentStatus) []string {
	result := []string{}
	any := []string{}
	successful := []string{}
	failure := []string{}

	for name, state := range dependencies {
		switch state {
		case models.RequiredParentStatusAny:
			any = append(any, name)
		case models.RequiredParentStatusSuccess:
			successful = append(successful, name)
		case models.RequiredParentStatusFailure:
			failure = append(failure, name)
		case models.RequiredParentStatusUnknown:
		}
	}

	if len(any) > 0 {
		if len(any) == 1 {
			result = append(result, fmt.Sprintf("After task %s has finished.", strings.Join(any, ", ")))
		} else {
			result = append(result, fmt.Sprintf("After tasks %s have finished.", strings.Join(any, ", ")))
		}
	}
	if len(successful) > 0 {
		if len(successful) == 1 {
			result = append(result, fmt.Sprintf("Only after task %s has finished successfully.", strings.Join(successful, ", ")))
		} else {
			result = append(result, fmt.Sprintf("Only after tasks %s have finished successfully.", strings.Join(successful, ", ")))
		}
	}
	if len(failure) > 0 {
		if len(failure) == 1 {
			result = append(result, fmt.Sprintf("Only after task %s has finished with an error.", strings.Join(failure, ", ")))
		} else {
			result = append(result, fmt.Sprintf("Only after tasks %s have finished with an error.", strings.Join(failure, ", ")))
		}
	}

	return result
}
