// Package main provides localization for the serexport CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Root command
		"Inspect, repair and export SER astronomy captures.": "SER 形式の天体撮影データを確認、修復、書き出しします。",

		// Version command
		"serexport version %s": "serexport バージョン %s",

		// Runtime messages
		"Exporting: %d/%d frames (%.0f%%), %d bytes": "書き出し中: %d/%d フレーム (%.0f%%), %d バイト",
		"Output saved to %s":                         "出力を %s に保存しました",
		"Summary saved to %s":                        "サマリーを %s に保存しました",
		"%s now declares %d frames":                  "%s のフレーム数は %d になりました",

		// Summary content
		"SER Export Summary": "SER 書き出しサマリー",
		"Source":             "ソース",
		"Item":               "項目",
		"Value":              "値",
		"File":               "ファイル",
		"Frame Size":         "フレームサイズ",
		"Color":              "カラー",
		"Pixel Depth":        "ピクセル深度",
		"effective":          "実効",
		"Frames":             "フレーム数",
		"File Size":          "ファイルサイズ",
		"Observer":           "観測者",
		"Instrument":         "カメラ",
		"Telescope":          "望遠鏡",
		"Start Time (UTC)":   "開始時刻 (UTC)",
		"Timestamps":         "タイムスタンプ",
		"Export":             "書き出し",
		"Output":             "出力先",
		"Format":             "形式",
		"Selection":          "選択範囲",
		"Processing":         "処理",
		"None":               "なし",
		"Frames Written":     "書き出したフレーム",
		"Bytes Written":      "書き出したバイト数",
		"Estimated Size":     "推定サイズ",
		"Result":             "結果",
		"Run ID":             "実行 ID",
		"Generated at":       "生成日時",

		// Run states
		"completed": "完了",
		"aborted":   "中止",
		"failed":    "失敗",
	})
}
