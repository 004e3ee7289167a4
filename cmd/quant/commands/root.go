package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	storeKind    string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "Aegis Rotation - 모멘텀 로테이션 백테스트 엔진",
	Long: `Aegis Rotation Unified CLI

일별 가격 데이터로 모멘텀 로테이션 전략을 시뮬레이션합니다.
리스크 평가 → 전략 평가 → 리밸런싱 → 성과 분석.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant backtest run --strategy config/strategy/momentum_rotation.yaml
  go run ./cmd/quant data check --store sqlite
  go run ./cmd/quant api
  go run ./cmd/quant scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default: STRATEGY_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", storeAuto, "price store (auto|sqlite|postgres)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
