package config

import (
	"os"
	"strings"
)

// loadEnvFile parses a dotenv-style file into a map. A missing file yields
// an empty map: the file is a development convenience, not a requirement.
// Supported syntax: KEY=VALUE lines, blank lines, # comments, single or
// double quoted values, and ${VAR} / ${VAR:-default} references resolved
// against earlier lines and then the process environment.
func loadEnvFile(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseEnvBuffer(buf), nil
}

func parseEnvBuffer(buf []byte) map[string]string {
	envMap := make(map[string]string)
	for _, line := range strings.Split(string(buf), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val := splitEnvLine(line)
		if key == "" {
			continue
		}
		envMap[key] = interpolate(val, envMap)
	}
	return envMap
}

func splitEnvLine(line string) (string, string) {
	tok := strings.SplitN(line, "=", 2)
	if len(tok) < 2 {
		return tok[0], ""
	}
	return tok[0], dequote(tok[1])
}

func dequote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// interpolate expands ${VAR} and ${VAR:-default} references. Unresolvable
// references without a default are preserved verbatim, matching dotenv
// behavior, so a typo is visible rather than silently blanked.
func interpolate(input string, envMap map[string]string) string {
	if !strings.Contains(input, "${") {
		return input
	}

	var result strings.Builder
	for i := 0; i < len(input); {
		start := strings.Index(input[i:], "${")
		if start == -1 {
			result.WriteString(input[i:])
			break
		}
		start += i
		end := strings.Index(input[start:], "}")
		if end == -1 {
			result.WriteString(input[i:])
			break
		}
		end += start

		result.WriteString(input[i:start])
		result.WriteString(resolveReference(input[start:end+1], envMap))
		i = end + 1
	}
	return result.String()
}

func resolveReference(ref string, envMap map[string]string) string {
	inner := ref[2 : len(ref)-1]
	name, def := inner, ""
	if idx := strings.Index(inner, ":-"); idx != -1 {
		name, def = inner[:idx], inner[idx+2:]
	}
	if name == "" {
		return ref
	}
	if val, ok := envMap[name]; ok && val != "" {
		return val
	}
	if val := os.Getenv(name); val != "" {
		return val
	}
	if def != "" {
		return def
	}
	return ref
}
