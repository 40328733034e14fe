// Copyright (c) 2026 Tigera, Inc. All rights reserved.

package testutils

import (
	"github.com/onsi/ginkgo"
	log "github.com/sirupsen/logrus"
)

// HookLogrusForGinkgo sends logrus output to the GinkgoWriter so that it is only displayed for failing tests, and
// enables debug logging so that the evaluation steps are visible when it is.
func HookLogrusForGinkgo() {
	log.SetOutput(ginkgo.GinkgoWriter)
	log.SetLevel(log.DebugLevel)
}
