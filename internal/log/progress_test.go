package log

import (
	"testing"
	"time"
)

func TestProgressIndicatorBasicFunctionality(t *testing.T) {
	config := DefaultProgressConfig()
	config.ShowSpinner = false

	progress := NewProgressIndicator("ticks replayed", 10, config)
	if progress == nil {
		t.Fatal("failed to create progress indicator")
	}

	progress.Increment()
	progress.Update(5)
	progress.Finish()
}

func TestProgressIndicatorThroughputReflectsTicksProcessed(t *testing.T) {
	config := DefaultProgressConfig()
	config.ShowSpinner = false

	progress := NewProgressIndicator("ticks replayed", 1000, config)
	progress.Update(100)
	time.Sleep(10 * time.Millisecond)

	if rate := progress.Throughput(); rate <= 0 {
		t.Errorf("expected positive throughput after processing ticks, got %v", rate)
	}
}

func TestProgressIndicatorZeroTotalIsIndeterminate(t *testing.T) {
	config := DefaultProgressConfig()
	config.ShowProgress = true

	progress := NewProgressIndicator("indeterminate", 0, config)
	progress.UpdateWithMessage(0, "working")
	progress.FinishWithMessage("done")
}

func TestSpinnerStylesAnimate(t *testing.T) {
	styles := []SpinnerStyle{SpinnerDots, SpinnerLine, SpinnerClock, SpinnerBounce, SpinnerPipeline}

	for _, style := range styles {
		spinner := NewSpinner(style)
		if spinner == nil {
			t.Errorf("failed to create spinner with style %s", style)
			continue
		}

		spinner.Start()
		char1 := spinner.Current()
		time.Sleep(250 * time.Millisecond)
		char2 := spinner.Current()
		spinner.Stop()

		if char1 == char2 {
			t.Errorf("spinner style %s not animating: %s == %s", style, char1, char2)
		}
	}
}

func TestStepLoggerTracksBacktestStages(t *testing.T) {
	steps := []string{"load", "replay", "report"}
	logger := NewStepLogger("backtest", steps)
	if logger == nil {
		t.Fatal("failed to create step logger")
	}

	for _, step := range steps {
		logger.StartStep(step)
		time.Sleep(5 * time.Millisecond)
		logger.CompleteStep()
	}

	logger.Finish()
}

func TestStepLoggerFailMarksCurrentStep(t *testing.T) {
	logger := NewStepLogger("backtest", []string{"load", "replay", "report"})

	logger.StartStep("load")
	logger.CompleteStep()

	logger.StartStep("replay")
	logger.Fail("malformed tick csv")
}

func TestStepLoggerUnknownStepIsHandledGracefully(t *testing.T) {
	logger := NewStepLogger("backtest", []string{"load", "replay"})

	logger.StartStep("unknown")
	logger.CompleteStep()
	logger.Finish()
}

func TestProgressConfigurationModes(t *testing.T) {
	defaultConfig := DefaultProgressConfig()
	if !defaultConfig.ShowSpinner || !defaultConfig.ShowProgress || !defaultConfig.ShowETA {
		t.Error("default config should enable all progress features")
	}

	quietConfig := QuietProgressConfig()
	if quietConfig.ShowSpinner || quietConfig.ShowProgress || quietConfig.ShowETA {
		t.Error("quiet config should disable all progress features")
	}
}
