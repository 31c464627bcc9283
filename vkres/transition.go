package vkres

import (
	"github.com/vkngwrapper/core/v2/core1_0"
	"github.com/vkngwrapper/extensions/v2/khr_swapchain"
)

// Transition describes the destination side of an image layout change
// together with the pipeline scopes it synchronizes. The source layout is
// not part of the transition: it is whatever the image currently tracks.
type Transition struct {
	NewLayout     core1_0.ImageLayout
	SrcStageMask  core1_0.PipelineStageFlags
	SrcAccessMask core1_0.AccessFlags
	DstStageMask  core1_0.PipelineStageFlags
	DstAccessMask core1_0.AccessFlags
}

// The stage/access pairs the engine actually uses. Call sites pick a preset
// instead of assembling masks by hand.
var (
	// TransitionTransferSrc prepares a host-written image to be the source
	// of a transfer.
	TransitionTransferSrc = Transition{
		NewLayout:     core1_0.ImageLayoutTransferSrcOptimal,
		SrcStageMask:  core1_0.PipelineStageHost,
		SrcAccessMask: core1_0.AccessHostWrite,
		DstStageMask:  core1_0.PipelineStageTransfer,
		DstAccessMask: core1_0.AccessTransferRead,
	}

	// TransitionTransferDst prepares an image to receive a transfer.
	TransitionTransferDst = Transition{
		NewLayout:     core1_0.ImageLayoutTransferDstOptimal,
		SrcStageMask:  core1_0.PipelineStageTopOfPipe,
		DstStageMask:  core1_0.PipelineStageTransfer,
		DstAccessMask: core1_0.AccessTransferWrite,
	}

	// TransitionShaderRead makes a freshly-transferred image samplable.
	TransitionShaderRead = Transition{
		NewLayout:     core1_0.ImageLayoutShaderReadOnlyOptimal,
		SrcStageMask:  core1_0.PipelineStageTransfer,
		SrcAccessMask: core1_0.AccessTransferWrite,
		DstStageMask:  core1_0.PipelineStageFragmentShader,
		DstAccessMask: core1_0.AccessShaderRead,
	}

	// TransitionColorAttachment prepares an image for rendering into.
	TransitionColorAttachment = Transition{
		NewLayout:     core1_0.ImageLayoutColorAttachmentOptimal,
		SrcStageMask:  core1_0.PipelineStageTopOfPipe,
		DstStageMask:  core1_0.PipelineStageColorAttachmentOutput,
		DstAccessMask: core1_0.AccessColorAttachmentWrite,
	}

	// TransitionDepthAttachment prepares an image for depth testing.
	TransitionDepthAttachment = Transition{
		NewLayout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		SrcStageMask:  core1_0.PipelineStageTopOfPipe,
		DstStageMask:  core1_0.PipelineStageEarlyFragmentTests | core1_0.PipelineStageLateFragmentTests,
		DstAccessMask: core1_0.AccessDepthStencilAttachmentRead | core1_0.AccessDepthStencilAttachmentWrite,
	}

	// TransitionPresent hands a rendered image to the presentation engine.
	TransitionPresent = Transition{
		NewLayout:     khr_swapchain.ImageLayoutPresentSrc,
		SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
		SrcAccessMask: core1_0.AccessColorAttachmentWrite,
		DstStageMask:  core1_0.PipelineStageBottomOfPipe,
	}
)
