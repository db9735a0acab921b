package poll

import (
	"go.uber.org/zap"

	"gitlab.com/Cacophony/Monitor/pkg/monitor"
	"gitlab.com/Cacophony/Monitor/plugins/common"
)

type checkBundleInfo struct {
	Type monitor.SourceType
	URL  string
}

type checkBundle map[checkBundleInfo][]monitor.Descriptor

// bundleMonitors groups monitors watching the same source so every source is fetched once per pass
func bundleMonitors(run *common.Run, descriptors []monitor.Descriptor) checkBundle {
	run.Logger().Debug("bundling monitors",
		zap.Int("amount", len(descriptors)),
	)

	bundles := make(checkBundle)
	for _, descriptor := range descriptors {
		info := checkBundleInfo{
			Type: descriptor.Type,
			URL:  descriptor.URL,
		}
		bundles[info] = append(bundles[info], descriptor)
	}

	return bundles
}
