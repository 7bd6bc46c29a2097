package util

import (
	"os/exec"
	"runtime"
)

// OpenBrowser 用系统默认浏览器打开 url
func OpenBrowser(url string) error {
	return browserCommand(runtime.GOOS, url).Start()
}

// OpenBrowserWithFallback 默认方式失败时依次尝试备选命令
func OpenBrowserWithFallback(url string) error {
	err := OpenBrowser(url)
	if err == nil {
		return nil
	}
	for _, cmd := range fallbackCommands(runtime.GOOS, url) {
		if cmd.Start() == nil {
			return nil
		}
	}
	return err
}

func browserCommand(goos, url string) *exec.Cmd {
	switch goos {
	case "windows":
		// rundll32 在 Windows 7 上比 cmd /c start 稳定
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		return exec.Command("open", url)
	default:
		return exec.Command("xdg-open", url)
	}
}

func fallbackCommands(goos, url string) []*exec.Cmd {
	switch goos {
	case "windows":
		return []*exec.Cmd{exec.Command("explorer", url)}
	case "linux":
		var cmds []*exec.Cmd
		for _, browser := range []string{"google-chrome", "firefox", "chromium-browser", "sensible-browser"} {
			cmds = append(cmds, exec.Command(browser, url))
		}
		return cmds
	default:
		return nil
	}
}
