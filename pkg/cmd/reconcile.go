package cmd

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/filevault/pkg/configs"
	ctxPkg "github.com/yeisme/filevault/pkg/context"
	"github.com/yeisme/filevault/pkg/internal/service"
	"github.com/yeisme/filevault/pkg/internal/storage"
)

var (
	reconcileConfigPath  string
	reconcileFix         bool
	reconcileConcurrency int

	reconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "run one storage reconcile pass and print the report",
		Long: "核对版本元数据与对象存储的一致性：版本记录缺失对象时报告（--fix 下标记为 corrupted），" +
			"并列出没有对应版本记录的孤儿对象。",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.InitConfig(reconcileConfigPath); err != nil {
				return fmt.Errorf("init config: %w", err)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			manager, err := storage.Init(ctx)
			if err != nil {
				return fmt.Errorf("init storage: %w", err)
			}
			defer func() { _ = manager.Close() }()

			ctx = ctxPkg.WithStorageManager(ctx, manager)

			report, err := service.NewReconcileService(ctx).Run(ctx, reconcileFix, reconcileConcurrency)
			if err != nil {
				return err
			}

			out, err := sonic.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			return nil
		},
	}
)

// registerReconcileCommands 注册存储对账命令.
func registerReconcileCommands() {
	reconcileCmd.Flags().StringVarP(&reconcileConfigPath, "config", "c", "./", "config file path or directory")
	reconcileCmd.Flags().BoolVar(&reconcileFix, "fix", false, "mark versions with missing objects as corrupted")
	reconcileCmd.Flags().IntVar(&reconcileConcurrency, "concurrency", 0, "object existence check concurrency (0 = default)")
	rootCmd.AddCommand(reconcileCmd)
}
