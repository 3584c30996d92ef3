package logger

import (
	"github.com/sirupsen/logrus"
)

// New создает logrus логгер в формате, общем для всех сервисов
func New(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return logger
}

// OrDefault возвращает переданный логгер или новый с уровнем info
func OrDefault(l *logrus.Logger) *logrus.Logger {
	if l != nil {
		return l
	}
	return New("info")
}
