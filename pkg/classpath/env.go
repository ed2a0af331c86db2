package classpath

import (
	"os"
	"path/filepath"
)

// FindJmodPath locates java.base.jmod: $JAVA_BASE_JMOD, then
// $JAVA_HOME/jmods, then the usual Linux JDK install locations. It returns
// "" when nothing is found.
func FindJmodPath() string {
	if env := os.Getenv("JAVA_BASE_JMOD"); env != "" {
		return env
	}
	if javaHome := os.Getenv("JAVA_HOME"); javaHome != "" {
		p := filepath.Join(javaHome, "jmods", "java.base.jmod")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	matches, _ := filepath.Glob("/usr/lib/jvm/java-*-openjdk-*/jmods/java.base.jmod")
	if len(matches) > 0 {
		return matches[0]
	}
	return ""
}
