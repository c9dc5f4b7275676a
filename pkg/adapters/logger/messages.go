package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Container
		"Opened %s: %dx%d %s, %d-bit, %d frames": "%s を開きました: %dx%d %s, %d ビット, %d フレーム",
		"Effective pixel depth: %d bits":        "実効ピクセル深度: %d ビット",
		"Frame count of %s is invalid: %v":      "%s のフレーム数が不正です: %v",
		"Run 'serexport repair %s' to fix the frame count": "フレーム数を修正するには 'serexport repair %s' を実行してください",
		"Repaired %s: frame count set to %d":    "%s を修復しました: フレーム数を %d に設定",

		// Export run
		"Exporting %d frames to %s (%s)":          "%d フレームを %s に書き出し中 (%s)",
		"Processing: %s":                          "処理: %s",
		"Frame %d/%d (source frame %d)":           "フレーム %d/%d (元フレーム %d)",
		"Frame rate from timestamps: %.3f fps":    "タイムスタンプからのフレームレート: %.3f fps",
		"No usable timestamps, using %.3f fps":    "有効なタイムスタンプがありません。%.3f fps を使用します",
		"Export completed: %d frames, %d bytes":   "書き出し完了: %d フレーム, %d バイト",
		"Export cancelled after %d frames, partial output kept at %s": "%d フレームで書き出しを中止しました。途中までの出力は %s にあります",
		"Export failed after %d frames: %v":       "%d フレームで書き出しに失敗しました: %v",
		"Could not save debug output: %v":         "デバッグ出力を保存できませんでした: %v",

		// CLI
		"Interrupted, cancelling export...": "中断されました。書き出しを中止しています...",
		"Loaded configuration from %s":      "%s から設定を読み込みました",
	})
}
